package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one SLA escalation pass and exit",
	Long: `Scan for grievances past their SLA deadline, escalate each one, and
exit. Useful from cron when the long-running serve process is not wanted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.pool.Close()

		escalated, err := app.sweeper.SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("escalated %d overdue grievances\n", escalated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
