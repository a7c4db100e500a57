package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sigreer/diskmon/internal/cache"
	"github.com/sigreer/diskmon/internal/collector"
	"github.com/sigreer/diskmon/internal/config"
	"github.com/sigreer/diskmon/internal/db"
	"github.com/sigreer/diskmon/internal/health"
	"github.com/sigreer/diskmon/internal/logging"
	"github.com/sigreer/diskmon/internal/notify"
	"github.com/sigreer/diskmon/internal/report"
	"github.com/sigreer/diskmon/internal/shell"
	"github.com/sigreer/diskmon/internal/system"
	"github.com/sigreer/diskmon/internal/volume"
)

// Process exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitConfig   = 2
	exitDelivery = 2
)

type options struct {
	configPath   string
	forceMail    bool
	smartView    bool
	jsonOut      bool
	smartTimeout int
}

// environment holds everything a run touches outside the process
type environment struct {
	goos    string
	goarch  string
	runner  shell.Runner
	fs      afero.Fs
	volumes func(ctx context.Context, log logr.Logger) ([]volume.Volume, error)
	sink    func(cfg *config.Config) notify.Sink
	retry   notify.Retry
	logger  func(debug bool) (logr.Logger, func(), error)
	now     func() time.Time
	stdout  io.Writer
	stderr  io.Writer
}

func hostEnvironment(stdout, stderr io.Writer) environment {
	return environment{
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		runner: shell.Exec{},
		fs:     afero.NewOsFs(),
		volumes: func(ctx context.Context, log logr.Logger) ([]volume.Volume, error) {
			e := volume.Enumerator{GOOS: runtime.GOOS, Log: log}
			return e.Enumerate(ctx)
		},
		sink:   func(cfg *config.Config) notify.Sink { return notify.NewSMTPSink(cfg) },
		retry:  notify.DefaultRetry,
		logger: logging.New,
		now:    time.Now,
		stdout: stdout,
		stderr: stderr,
	}
}

func runMonitor(cmd *cobra.Command, args []string) {
	opts := options{configPath: cfgFile}
	opts.forceMail, _ = cmd.Flags().GetBool("force-mail")
	opts.smartView, _ = cmd.Flags().GetBool("smart")
	opts.jsonOut, _ = cmd.Flags().GetBool("json")
	opts.smartTimeout, _ = cmd.Flags().GetInt("smart-timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if code := monitor(ctx, opts, hostEnvironment(cmd.OutOrStdout(), cmd.ErrOrStderr())); code != exitOK {
		stop()
		os.Exit(code)
	}
}

// monitor performs one complete run and returns the process exit code
func monitor(ctx context.Context, opts options, env environment) int {
	cfg, warnings, err := config.Load(opts.configPath, env.goos)
	if err != nil {
		fmt.Fprintf(env.stderr, "%s %v\n", critStyle.Render("Configuration error:"), err)
		return exitConfig
	}

	log, syncLog, err := env.logger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(env.stderr, "Error creating logger: %v\n", err)
		return exitFailure
	}
	defer syncLog()

	for _, w := range warnings {
		log.Info("Configuration warning", "warning", w)
	}
	log.V(1).Info("Loaded configuration", "threshold", cfg.ThresholdPercent, "mail", cfg.MailEnabled,
		"health_checks", cfg.HealthChecks(), "smart_alerts", cfg.SmartAlerts(), "excluded", cfg.ExcludedDisks)

	timeout := cfg.ProbeTimeout()
	if opts.smartTimeout > 0 {
		timeout = time.Duration(opts.smartTimeout) * time.Second
	}

	deps := health.Deps{Runner: env.runner, Fs: env.fs, Cache: cache.New(), Log: log}
	info := system.Collect(ctx, env.fs, env.goarch, log)
	strategy := health.NewStrategy(env.goos, deps)
	log.Info("Health tooling", "smartctl", strategy.ToolAvailable)

	if !opts.jsonOut {
		printSystem(env.stdout, info, strategy.ToolAvailable)
		fmt.Fprintln(env.stdout, noteStyle.Italic(true).Render("Loading information, please wait..."))
	}

	raw, err := env.volumes(ctx, log.WithName("volume"))
	if err != nil {
		log.Error(err, "Failed to enumerate volumes")
	}
	vols, unmatched := volume.Filter(raw, cfg.ExcludedDisks, env.goos)
	for _, ex := range unmatched {
		log.Info("Excluded disk did not match any volume", "entry", ex)
	}
	if len(vols) == 0 {
		fmt.Fprintf(env.stderr, "%s This could indicate a system error or all disks are removable/network drives.\n",
			critStyle.Render("No monitored disks found."))
		return exitFailure
	}

	c := &collector.Collector{
		Checker:        strategy,
		Timeout:        timeout,
		MaxConcurrency: cfg.MaxConcurrency,
		Enabled:        cfg.HealthChecks(),
		Log:            log.WithName("collector"),
	}
	reports, err := report.Assemble(vols, c.Collect(ctx, vols))
	if err != nil {
		log.Error(err, "Failed to assemble report")
		return exitFailure
	}

	if opts.jsonOut {
		data, err := report.NewDocument(info, reports, cfg.ThresholdPercent, strategy.ToolAvailable).Marshal()
		if err != nil {
			log.Error(err, "Failed to serialize JSON output")
			return exitFailure
		}
		fmt.Fprintln(env.stdout, string(data))
		return exitOK
	}

	printDisks(env.stdout, reports, info.IsVirtualized)

	if opts.smartView {
		printSmartDetails(env.stdout, reports)
		return exitOK
	}

	decision := report.Decide(reports, report.Policy{
		ThresholdPercent: cfg.ThresholdPercent,
		SmartAlerts:      cfg.SmartAlerts(),
		AlertOnUnknown:   cfg.AlertOnUnknown,
		Debug:            cfg.Debug,
		Forced:           opts.forceMail,
	})
	printDecision(env.stdout, decision, reports, cfg.ThresholdPercent)

	summary := report.Summarize(reports, cfg.ThresholdPercent, info.IsVirtualized)
	run := &db.Run{
		StartedAt:    env.now(),
		Hostname:     info.Hostname,
		TotalDisks:   summary.Total,
		LowSpace:     summary.LowSpace,
		SmartFailing: summary.Failing,
		SmartUnknown: summary.Unknown,
		RAIDPresent:  summary.RAIDPresent,
		Virtualized:  summary.Virtualized,
		Forced:       opts.forceMail,
		Alerts:       report.Alerts(reports, cfg.ThresholdPercent),
	}

	code := exitOK
	if decision.Fire {
		run.ReportSent = true
		header := report.Header{
			FriendlyName:     cfg.FriendlyName,
			System:           info,
			Time:             run.StartedAt,
			Forced:           opts.forceMail,
			Debug:            cfg.Debug,
			ToolAvailable:    strategy.ToolAvailable,
			ThresholdPercent: cfg.ThresholdPercent,
		}
		if err := sendReport(ctx, cfg, env, header, reports, log); err != nil {
			fmt.Fprintf(env.stderr, "%s %v\n", critStyle.Render("ERROR Failed to send system report:"), err)
			fmt.Fprintln(env.stderr, critStyle.Render("Some errors occurred during alert processing."))
			run.DeliveryError = err.Error()
			code = exitDelivery
		} else {
			run.Delivered = true
		}
	}

	recordHistory(cfg, run, log)
	return code
}

// sendReport renders and delivers the consolidated report. With mail
// disabled the report is announced on stdout instead.
func sendReport(ctx context.Context, cfg *config.Config, env environment, h report.Header, reports []report.DiskReport, log logr.Logger) error {
	if !cfg.MailEnabled {
		fmt.Fprintf(env.stdout, "\n[TEST MODE] System report: %d disk(s) monitored. Mail not sent.\n", len(reports))
		return nil
	}

	body, err := report.HTML(h, reports)
	if err != nil {
		return err
	}
	msg := notify.Message{
		Subject:    report.Subject(h),
		HTMLBody:   body,
		Recipients: cfg.Recipients(),
	}
	if err := notify.DeliverWithRetry(ctx, env.sink(cfg), msg, env.retry, log.WithName("notify")); err != nil {
		return err
	}

	suffix := ""
	switch {
	case h.Forced:
		suffix = warnStyle.Render(" (forced)")
	case h.Debug:
		suffix = warnStyle.Render(" (debug)")
	}
	fmt.Fprintf(env.stdout, "%s System report sent for %s disk(s)%s\n",
		goodStyle.Render("SUCCESS"), nameStyle.Render(fmt.Sprint(len(reports))), suffix)
	return nil
}

func recordHistory(cfg *config.Config, run *db.Run, log logr.Logger) {
	path := cfg.HistoryPath
	if path == "" {
		return
	}
	store, err := db.New(path)
	if err != nil {
		log.Error(err, "Failed to open history database", "path", path)
		return
	}
	defer store.Close()

	if err := store.RecordRun(run); err != nil {
		log.Error(err, "Failed to record run", "path", path)
		return
	}
	log.V(1).Info("Recorded run", "id", run.ID)

	if cfg.HistoryRetentionDays > 0 {
		cutoff := run.StartedAt.AddDate(0, 0, -cfg.HistoryRetentionDays)
		n, err := store.PruneBefore(cutoff)
		if err != nil {
			log.Error(err, "Failed to prune history", "path", path)
			return
		}
		if n > 0 {
			log.V(1).Info("Pruned old runs", "removed", n)
		}
	}
}
