package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/smazurov/screenrec/internal/encoders"
)

// CreateValidateEncodersCmd creates the validate-encoders command.
func CreateValidateEncodersCmd(env *Env) *cobra.Command {
	var outputFile string
	var quiet bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "validate-encoders",
		Short: "Validate hardware encoder availability",
		Long: `Probes every H.264 encoder candidate for this platform with a short synthetic encode ` +
			`and reports which ones actually work and which one a recording would use.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ffmpegPath, ok := env.binaries().FFmpeg()
			if !ok {
				exitf("ffmpeg not found")
			}

			report := encoders.ValidateAll(cmd.Context(), ffmpegPath, env.goos(), timeout)
			if !quiet {
				encoders.PrintValidationSummary(os.Stdout, report)
			}

			if outputFile != "" {
				data, err := toml.Marshal(report)
				if err != nil {
					exitf("Failed to encode validation results: %v", err)
				}
				if err := os.WriteFile(outputFile, data, 0o644); err != nil {
					exitf("Failed to write %s: %v", outputFile, err)
				}
				if !quiet {
					fmt.Printf("Results written to %s\n", outputFile)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write validation results to this TOML file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the validation summary")
	cmd.Flags().DurationVar(&timeout, "timeout", encoders.DefaultProbeTimeout, "Timeout for each encoder probe")
	return cmd
}
