package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/screenrec/internal/probe"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Show ffprobe metadata for a recording",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ffprobePath, ok := env.binaries().FFprobe()
			if !ok {
				exitf("ffprobe not found")
			}
			if _, err := os.Stat(args[0]); err != nil {
				exitf("Cannot read %s: %v", args[0], err)
			}

			result := probe.Probe(cmd.Context(), ffprobePath, args[0], probe.DefaultTimeout)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					exitf("Failed to encode probe: %v", err)
				}
			} else {
				printProbe(os.Stdout, args[0], result)
			}
			if result == nil {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the probe as JSON")
	return cmd
}
