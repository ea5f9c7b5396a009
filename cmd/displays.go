package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/screenrec/internal/displays"
)

// CreateDisplaysCmd creates the displays command.
func CreateDisplaysCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "displays",
		Short: "List active displays and their desktop bounds",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			list := displays.List(displays.System)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(list)
				return
			}
			printDisplays(os.Stdout, list)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print displays as JSON")
	return cmd
}

func printDisplays(w io.Writer, list []displays.Display) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No active displays")
		return
	}
	for _, d := range list {
		primary := ""
		if d.Primary {
			primary = " (primary)"
		}
		fmt.Fprintf(w, "%d: %s%s\n", d.Index, d.Bounds, primary)
	}
}
