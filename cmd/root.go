// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bubo",
	Short: "Bubo - DNS-filtering tunnel engine",
	Long: `Bubo intercepts outbound traffic on a virtual tunnel interface, inspects
DNS queries and answers blocked domains with a synthetic NXDOMAIN while
relaying everything else to the configured upstream resolver.

The privileged collaborator establishes the tunnel device and hands its
file descriptor over; bubo owns only the packet-processing pipeline:
  - IPv4/UDP/DNS wire parsing, silent drop of anything else
  - blocklist engine: built-in set plus user block/unblock overrides
  - upstream forwarding over one shared, protected UDP socket
  - response frame construction with IPv4 header checksum`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/bubo/config.yml",
		"config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkCmd)
}
