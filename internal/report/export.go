package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/ginjaninja78/mercado/pkg/utils"
)

// Export formats.
const (
	FormatXML  = "xml"
	FormatXLSX = "xlsx"
)

// ExportFileFormat is the name pattern of exported files.
const ExportFileFormat = "{session}_{timestamp}_{uuid}"

// Export writes ev to a new file in dir and returns its path.
func Export(ev *planner.Evaluation, format, dir string) (string, error) {
	var (
		data []byte
		err  error
	)
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatXML:
		data = GenerateXML(ev)
	case FormatXLSX:
		data, err = GenerateXLSX(ev)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown export format %q (available: %s, %s)", format, FormatXML, FormatXLSX)
	}

	session := ev.SessionName
	if session == "" {
		session = ev.Session
	}
	name := utils.GenerateOutputFileName(ExportFileFormat, map[string]string{"session": session}, "."+format)
	path := filepath.Join(dir, name)
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", format, err)
	}
	return path, nil
}
