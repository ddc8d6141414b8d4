package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkpd-sim/pkpd-sim/internal/server"
)

var catalogJSON bool // Print the catalog as JSON

// catalogCmd lists drugs, models and reference parameters
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List drugs, PK models and therapeutic ranges",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeCatalog(cmd.OutOrStdout(), catalogJSON); err != nil {
			logrus.Fatalf("Failed to write catalog: %v", err)
		}
	},
}

func writeCatalog(w io.Writer, asJSON bool) error {
	drugs := server.Catalog()
	if asJSON {
		return writeJSON(w, drugs)
	}
	for _, d := range drugs {
		fmt.Fprintf(w, "%s (%s, x%g to ng/mL)\n", d.Name, d.Unit, d.ScaleFactor)
		fmt.Fprintf(w, "  %s\n", d.Range.Label)
		fmt.Fprintf(w, "  default bolus %g %s, infusion %g %s/h for %g min\n",
			d.Defaults.Bolus, d.Unit, d.Defaults.Rate, d.Unit, d.Defaults.Duration)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  model\tV1\tV2\tV3\tCl\tQ2\tQ3\tke0\tneeds\t")
		for _, m := range d.Models {
			p := m.Reference
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\t%.2f\t%.3f\t%.3f\t%.3f\t%.3f\t%v\t\n",
				m.Name, p.V1, p.V2, p.V3, p.Cl, p.Q2, p.Q3, p.Ke0, m.Requirements)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print JSON instead of a table")
}
