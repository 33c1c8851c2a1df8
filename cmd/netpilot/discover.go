package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"netpilot/internal/orchestrator"
)

func runDiscover(ctx context.Context, g globalFlags, args []string) error {
	fs := newFlagSet("discover", "discover [-port n] [-cred profile] [-nmap] <cidr|address>")
	port := fs.Int("port", 0, "SSH port to probe (default: from config)")
	cred := fs.String("cred", "", "credential profile for trial logins (default: the configured default)")
	useNmap := fs.Bool("nmap", false, "sweep with nmap instead of TCP probes")
	workers := fs.Int("workers", 0, "concurrent addresses (default: from posture)")
	rateLimit := fs.Float64("rate", -1, "probes per second, 0 for unlimited (default: from posture)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one range is required")
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	profile := *cred
	if profile == "" {
		profile = a.cfg.DefaultCredential
	}
	if profile == "" {
		return fmt.Errorf("no credential profile: pass -cred or set default_credential")
	}
	creds, err := a.credentials.Profile(profile)
	if err != nil {
		return err
	}

	if *port == 0 {
		*port = a.cfg.Discovery.Port
	}
	if *workers == 0 {
		*workers = a.behavior.DiscoveryWorkers
	}
	if *rateLimit < 0 {
		*rateLimit = a.behavior.DiscoveryRate
	}

	opts := []orchestrator.DiscoveryOption{
		orchestrator.WithProber(orchestrator.TCPProber{Timeout: a.behavior.ProbeTimeout}),
		orchestrator.WithDiscoveryWorkers(*workers),
		orchestrator.WithRate(*rateLimit, *workers),
		orchestrator.WithTimeouts(a.behavior.ConnectTimeout, a.behavior.CommandTimeout),
		orchestrator.WithDiscoveryLogger(a.logger),
	}
	if *useNmap || a.cfg.Discovery.UseNmap {
		sweeper := orchestrator.NewNmapSweeper(
			orchestrator.WithNmapTimeout(a.behavior.SlowCommandTimeout),
			orchestrator.WithNmapLogger(a.logger),
		)
		if sweeper.Available(ctx) {
			opts = append(opts, orchestrator.WithSweeper(sweeper))
		} else {
			a.logger.Warn("nmap not available, using TCP probes")
		}
	}

	discovery := orchestrator.NewDiscovery(a.dialer, a.registry, a.repo, opts...)

	progress := newProgressPrinter("discover", a.out.json)
	report, err := discovery.Run(ctx, orchestrator.Request{
		Range:       fs.Arg(0),
		Port:        *port,
		Credentials: creds,
	}, progress.update)
	progress.done()
	if err != nil {
		return err
	}

	a.logger.Info("discovery finished",
		zap.String("range", fs.Arg(0)),
		zap.Int("registered", len(report.Registered)),
	)

	type jsonResult struct {
		Address string `json:"address"`
		Status  string `json:"status"`
		Device  string `json:"device,omitempty"`
		Vendor  string `json:"vendor,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	results := make([]jsonResult, 0, len(report.Results))
	for _, r := range report.Results {
		row := jsonResult{Address: r.Address, Status: string(r.Status)}
		if r.Device != nil {
			row.Device = r.Device.Name
			row.Vendor = string(r.Device.Vendor)
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		results = append(results, row)
	}

	return a.out.print(results, func(w io.Writer) {
		rows := make([][]string, 0, len(report.Registered))
		for _, d := range report.Registered {
			rows = append(rows, []string{d.Name, d.Address, string(d.Vendor), orDash(d.Facts.Model), orDash(d.Facts.OSVersion)})
		}
		if len(rows) > 0 {
			renderTable(w, []string{"NAME", "ADDRESS", "VENDOR", "MODEL", "VERSION"}, rows)
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d registered, %d unidentified, %d unreachable, %d skipped, %d failed, %d cancelled\n",
			report.Count(orchestrator.DiscoveryRegistered),
			report.Count(orchestrator.DiscoveryUnidentified),
			report.Count(orchestrator.DiscoveryUnreachable),
			report.Count(orchestrator.DiscoverySkipped),
			report.Count(orchestrator.DiscoveryFailed),
			report.Count(orchestrator.DiscoveryCancelled),
		)
	})
}

func runHosts(ctx context.Context, g globalFlags, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: netpilot hosts <cidr>")
	}
	hosts, err := orchestrator.ExpandRange(args[0])
	if err != nil {
		return err
	}
	return newOutput(g.jsonOutput).print(hosts, func(w io.Writer) {
		for _, h := range hosts {
			fmt.Fprintln(w, h)
		}
		fmt.Fprintf(w, "%d usable hosts\n", len(hosts))
	})
}
