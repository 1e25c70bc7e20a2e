package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sahayak/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sahayak",
	Short: "Sahayak - municipal grievance intake and triage backend",
	Long: `Sahayak receives citizen grievances over voice, sms, whatsapp, and web
channels, classifies and prioritizes them, tracks their lifecycle against
SLA deadlines, and streams changes to operator dashboards.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sahayak v0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sahayak.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}
