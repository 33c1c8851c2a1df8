package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"netpilot/internal/alert"
	"netpilot/internal/domain"
	"netpilot/internal/handler"
	"netpilot/internal/hub"
	"netpilot/internal/loader"
	"netpilot/internal/orchestrator"
	"netpilot/internal/watcher"
)

func runMonitor(ctx context.Context, g globalFlags, args []string) error {
	fs := newFlagSet("monitor", "monitor [-interval d] [-rules file] [-listen addr] [-once] [-vendor family] [device...]")
	interval := fs.Duration("interval", 0, "polling interval, at least 10s (default: from config)")
	rulesFile := fs.String("rules", "", "alert rules file, reloaded on change (default: from config)")
	listen := fs.String("listen", "", "serve the status API and /metrics on this address (default: from config)")
	once := fs.Bool("once", false, "poll once, print triggered alerts, and exit")
	vendorTag := fs.String("vendor", "", "only devices of this vendor family")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if *interval == 0 {
		*interval = a.cfg.Monitor.Interval.Duration()
	}
	if *rulesFile == "" {
		*rulesFile = a.cfg.Monitor.RulesFile
	}
	if *listen == "" {
		*listen = a.cfg.Metrics.Listen
	}

	targets, err := a.devices(ctx, fs.Args(), *vendorTag)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no devices to monitor")
	}
	labels := make(map[string]string, len(targets))
	for _, d := range targets {
		labels[d.ID] = d.Label()
	}

	rules := alert.NewMemoryRules()
	rulesLoader := loader.NewRulesLoader(*rulesFile, a.repo, rules,
		loader.WithStoredRules(a.repo),
		loader.WithLogger(a.logger),
	)
	if _, err := rulesLoader.Reload(ctx); err != nil {
		return err
	}

	alerts := hub.New(hub.WithLogger(a.logger))
	sink := func(triggered []domain.TriggeredAlert) {
		printAlerts(a.out.w, labels, triggered)
		alerts.Publish(triggered)
	}

	evaluator := alert.NewEvaluator(rules, alert.WithLogger(a.logger))
	monitor := orchestrator.NewMonitor(a.pipeline, evaluator, sink, orchestrator.WithMonitorLogger(a.logger))
	monitor.SetTargets(targets)

	if *once {
		triggered := monitor.PollOnce(ctx)
		if len(triggered) == 0 {
			fmt.Fprintln(a.out.w, "no alerts")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go alerts.Run(ctx)

	if *rulesFile != "" {
		w := watcher.New(*rulesFile, func() {
			n, err := rulesLoader.Reload(ctx)
			if err != nil {
				a.logger.Error("rules reload failed, keeping previous rules", zap.Error(err))
				return
			}
			a.logger.Info("rules reloaded", zap.Int("count", n))
		}, watcher.WithLogger(a.logger))
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("rules watcher stopped", zap.Error(err))
			}
		}()
	}

	var server *http.Server
	if *listen != "" {
		status := handler.NewStatusHandler(a.repo, rules, alerts, monitor, a.logger)
		server = &http.Server{
			Addr:              *listen,
			Handler:           status.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			a.logger.Info("status API listening", zap.String("addr", *listen))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("status API failed", zap.Error(err))
				cancel()
			}
		}()
	}

	if err := monitor.Start(*interval, targets); err != nil {
		return err
	}
	a.logger.Info("monitoring",
		zap.Int("devices", len(targets)),
		zap.Int("rules", len(rules.All())),
		zap.Duration("interval", *interval),
	)

	<-ctx.Done()
	monitor.Stop()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("status API shutdown error", zap.Error(err))
		}
	}
	a.logger.Info("monitor stopped")
	return nil
}

func printAlerts(w io.Writer, labels map[string]string, alerts []domain.TriggeredAlert) {
	for _, al := range alerts {
		device := labels[al.DeviceID]
		if device == "" {
			device = al.DeviceID
		}
		fmt.Fprintf(w, "%s ALERT %s %s %s: expected %q, got %q\n",
			al.At.Format(time.RFC3339), device, al.Metric, al.Target, al.Expected, al.Actual)
	}
}

func runRules(ctx context.Context, g globalFlags, args []string) error {
	verb, rest, err := subcommand(args, "rules list|add|remove|export")
	if err != nil {
		return err
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	switch verb {
	case "list", "ls":
		return rulesList(ctx, a, rest)
	case "add":
		return rulesAdd(ctx, a, rest)
	case "remove", "rm":
		if len(rest) == 0 {
			return fmt.Errorf("usage: netpilot rules remove <id>...")
		}
		for _, id := range rest {
			if err := a.repo.DeleteAlertRule(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out.w, "removed rule %s\n", id)
		}
		return nil
	case "export":
		stored, err := a.repo.ListAlertRules(ctx)
		if err != nil {
			return err
		}
		data, err := loader.ExportRules(stored)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unknown rules command: %s", verb)
	}
}

func rulesList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("rules list", "rules list [-rules file]")
	rulesFile := fs.String("rules", a.cfg.Monitor.RulesFile, "alert rules file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rules := alert.NewMemoryRules()
	if _, err := loader.NewRulesLoader(*rulesFile, a.repo, rules,
		loader.WithStoredRules(a.repo),
		loader.WithLogger(a.logger),
	).Reload(ctx); err != nil {
		return err
	}

	stored, err := a.repo.ListAlertRules(ctx)
	if err != nil {
		return err
	}
	fromStore := make(map[string]bool, len(stored))
	for _, r := range stored {
		fromStore[r.ID] = true
	}

	devices, err := a.repo.ListDevices(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		names[d.ID] = d.Label()
	}

	all := rules.All()
	return a.out.print(all, func(w io.Writer) {
		rows := make([][]string, 0, len(all))
		for _, r := range all {
			source := "file"
			if fromStore[r.ID] {
				source = "stored"
			}
			rows = append(rows, []string{r.ID, orDash(r.Name), orDash(names[r.DeviceID]), string(r.Metric), r.Target, string(r.Condition), r.Expected, source})
		}
		renderTable(w, []string{"ID", "NAME", "DEVICE", "METRIC", "TARGET", "CONDITION", "EXPECTED", "SOURCE"}, rows)
	})
}

var (
	knownMetrics    = []domain.Metric{domain.MetricInterfaceStatus, domain.MetricInterfaceAdminStatus, domain.MetricInterfaceAddress}
	knownConditions = []domain.Condition{domain.ConditionNotEquals}
)

func rulesAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("rules add", "rules add -device <ref> -target <interface> [-metric m] [-condition c] [-expected v] [-name n]")
	device := fs.String("device", "", "device ID, name, or address")
	metric := fs.String("metric", string(domain.MetricInterfaceStatus), "metric to watch")
	target := fs.String("target", "", "interface name")
	condition := fs.String("condition", string(domain.ConditionNotEquals), "comparison")
	expected := fs.String("expected", domain.StatusUp, "expected value")
	name := fs.String("name", "", "rule name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *device == "" || *target == "" {
		fs.Usage()
		return fmt.Errorf("-device and -target are required")
	}
	if !slices.Contains(knownMetrics, domain.Metric(*metric)) {
		return fmt.Errorf("unknown metric %q", *metric)
	}
	if !slices.Contains(knownConditions, domain.Condition(*condition)) {
		return fmt.Errorf("unknown condition %q", *condition)
	}

	d, err := a.device(ctx, *device)
	if err != nil {
		return err
	}
	rule, err := a.repo.AddAlertRule(ctx, domain.AlertRule{
		Name:      *name,
		DeviceID:  d.ID,
		Metric:    domain.Metric(*metric),
		Target:    *target,
		Condition: domain.Condition(*condition),
		Expected:  *expected,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out.w, "added rule %s: %s %s %s %s %q\n", rule.ID, d.Label(), rule.Metric, rule.Target, rule.Condition, rule.Expected)
	return nil
}
