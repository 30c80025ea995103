// =============================================================================
// mercado - Main Entry Point
// =============================================================================
//
// USAGE:
//   mercado categories   - List the selectable categories
//   mercado plan         - Plan the shopping of the selected categories
//   mercado list         - Show the checklist
//   mercado check        - Mark items as bought
//   mercado sessions     - Manage planning sessions
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Ingestion, pricing, planning, storage and reporting
//   - pkg/       : Shared utilities (logging, files)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/mercado/cmd"
)

func main() {
	cmd.Execute()
}
