package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/bubo/internal/blocklist"
	"firestige.xyz/bubo/internal/config"
)

// checkCmd classifies hostnames against the configured blocklist without
// starting a session. Useful to verify override behavior.
var checkCmd = &cobra.Command{
	Use:   "check HOSTNAME...",
	Short: "Classify hostnames against the configured blocklist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		runCheck(engine, args, cmd.OutOrStdout())
		return nil
	},
}

func runCheck(engine *blocklist.Engine, hostnames []string, out io.Writer) {
	for _, host := range hostnames {
		verdict := engine.Classify(host)
		state := "allowed"
		if verdict.Blocked() {
			state = "BLOCKED"
		}
		fmt.Fprintf(out, "%-40s %s (%s)\n", host, state, verdict)
	}
}
