package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sigreer/diskmon/internal/config"
	"github.com/sigreer/diskmon/internal/db"
)

var errNoHistory = errors.New("run history is disabled (set history_path in the configuration)")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent monitoring runs",
	Long: `List recent monitoring runs recorded in the history database.

Only run summaries and alert strings are stored; per-disk reports are not.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		if err := showHistory(cmd.OutOrStdout(), cfgFile, limit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
}

func showHistory(w io.Writer, cfgPath string, limit int) error {
	cfg, _, err := config.Load(cfgPath, runtime.GOOS)
	if err != nil {
		return err
	}
	if cfg.HistoryPath == "" {
		return errNoHistory
	}

	store, err := db.New(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	printRuns(w, runs)
	return nil
}

func printRuns(w io.Writer, runs []*db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No runs recorded."))
		return
	}

	for _, r := range runs {
		status := goodStyle.Render("quiet")
		switch {
		case r.ReportSent && r.Delivered:
			status = warnStyle.Render("report sent")
		case r.ReportSent:
			status = critStyle.Render("delivery failed")
		}

		fmt.Fprintf(w, "%s  %s  %s  disks=%d low=%d failing=%d unknown=%d  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			dimStyle.Render(humanize.Time(r.StartedAt)),
			nameStyle.Render(r.Hostname),
			r.TotalDisks, r.LowSpace, r.SmartFailing, r.SmartUnknown,
			status)
		if r.Forced {
			fmt.Fprintf(w, "    %s\n", noteStyle.Render("forced"))
		}
		for _, a := range r.Alerts {
			fmt.Fprintf(w, "    %s\n", a)
		}
		if r.DeliveryError != "" {
			fmt.Fprintf(w, "    %s\n", critStyle.Render(r.DeliveryError))
		}
	}
}
