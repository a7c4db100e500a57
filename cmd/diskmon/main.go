package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmon/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "diskmon",
	Short: "Disk space and health monitor",
	Long: `diskmon checks every mounted volume for free space and device health,
then sends one consolidated report by mail when a volume is low on space,
a device reports a SMART problem, or a report is forced.

Health is read with smartctl when available, with the platform storage API on
Windows, and from kernel counters and logs otherwise.`,
	Args: cobra.NoArgs,
	Run:  runMonitor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the diskmon version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "diskmon", version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/diskmon/config.yaml)")

	rootCmd.Flags().Bool("force-mail", false, "Send a full system report even when no alert fires")
	rootCmd.Flags().Bool("smart", false, "Print SMART details for every disk and exit")
	rootCmd.Flags().Bool("json", false, "Print the structured report as JSON and exit")
	rootCmd.Flags().Int("smart-timeout", 0, "Per-disk health check timeout in seconds (default from config, 30)")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
