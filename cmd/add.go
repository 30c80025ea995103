package cmd

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/mercado/internal/ingest"
	"github.com/ginjaninja78/mercado/internal/pricing"
	"github.com/ginjaninja78/mercado/pkg/utils"
	"github.com/spf13/cobra"
)

var addRemove bool

// addCmd manages the manual entries of a session. Manual entries are costed
// and checklisted like requirement lines, under the category "manual".
var addCmd = &cobra.Command{
	Use:   "add <quantity> <unit> <product...> | add --remove <product...>",
	Short: "Add a manual entry to the session, or remove one",
	Example: `  mercado add 2 kg papa amarilla
  mercado add 12 und huevo
  mercado add --remove papa amarilla`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		session, err := a.session(ctx)
		if err != nil {
			return err
		}

		if addRemove {
			if len(args) == 0 {
				return fmt.Errorf("name the product to remove")
			}
			product := strings.Join(args, " ")
			n := session.RemoveManual(product)
			if n == 0 {
				return fmt.Errorf("session %s has no manual entry for %q", session.Name, product)
			}
			utils.Log.Infof("Removed %d manual entr(ies) for %q", n, product)
		} else {
			if len(args) < 3 {
				return fmt.Errorf("expected <quantity> <unit> <product>")
			}
			qty, ok := pricing.ParseNumber(args[0])
			if !ok {
				return fmt.Errorf("%q is not a quantity", args[0])
			}
			product := strings.Join(args[2:], " ")
			units := ingest.NewUnits(a.cfg.Units)
			if err := session.AddManual(qty, args[1], product, units); err != nil {
				return err
			}
			if u := units.Normalize(args[1]); !units.Known(u) {
				utils.Log.Warnf("Unit %q is neither %s nor a count unit (%s), it will be converted through the equivalence table",
					args[1], units.Mass(), strings.Join(units.CountUnits(), ", "))
			}
			utils.Log.Infof("Added %s %s %s to session %s", qty.String(), units.Normalize(args[1]), product, session.Name)
		}

		return a.db.SaveSession(ctx, session)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().BoolVar(&addRemove, "remove", false, "Remove the manual entries of a product")
}
