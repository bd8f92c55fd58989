package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/bubo/internal/config"
)

// validateCmd loads the config, runs full validation and prints the
// effective configuration (defaults applied) as YAML.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, cmd.OutOrStdout())
	},
}

func runValidate(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return err
	}

	fmt.Fprintf(out, "✓ %s is valid\n", path)
	fmt.Fprintf(out, "upstream resolver: %s\n\n", cfg.UpstreamAddrPort())

	rendered, err := yaml.Marshal(map[string]*config.Config{"bubo": cfg})
	if err != nil {
		return fmt.Errorf("failed to render effective config: %w", err)
	}
	fmt.Fprintf(out, "effective configuration:\n%s", rendered)
	return nil
}
