package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"netpilot/internal/domain"
	"netpilot/internal/executor"
	"netpilot/internal/orchestrator"
)

const showUsage = "show <version|hostname|interfaces|brief|vlans|routes|acls|acl <name>|compliance|fullconfig> <device>"

func runShow(ctx context.Context, g globalFlags, args []string) error {
	what, rest, err := subcommand(args, showUsage)
	if err != nil {
		return err
	}

	var aclName string
	if what == "acl" {
		if len(rest) < 1 {
			return fmt.Errorf("usage: netpilot show acl <name> <device>")
		}
		aclName, rest = rest[0], rest[1:]
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: netpilot %s", showUsage)
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	device, err := a.device(ctx, rest[0])
	if err != nil {
		return err
	}
	p := a.pipeline

	switch what {
	case "version":
		v, err := p.Version(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(v, func(w io.Writer) {
			fmt.Fprintf(w, "%s\nmodel:   %s\nversion: %s\n", device.Label(), orDash(v.Model), orDash(v.OSVersion))
		})

	case "hostname":
		name, err := p.Hostname(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(map[string]string{"hostname": name}, func(w io.Writer) {
			fmt.Fprintln(w, orDash(name))
		})

	case "interfaces", "brief":
		load := p.Interfaces
		if what == "brief" {
			load = p.InterfaceBrief
		}
		ifaces, err := load(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(ifaces, func(w io.Writer) { interfaceTable(w, ifaces) })

	case "fullconfig":
		full, err := p.FullConfig(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(full, func(w io.Writer) {
			fmt.Fprintf(w, "hostname: %s\n\n", orDash(full.Hostname))
			interfaceTable(w, full.Interfaces)
		})

	case "vlans":
		vlans, err := p.Vlans(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(vlans, func(w io.Writer) {
			rows := make([][]string, 0, len(vlans))
			for _, v := range vlans {
				rows = append(rows, []string{strconv.Itoa(v.ID), orDash(v.Name), orDash(v.Status)})
			}
			renderTable(w, []string{"ID", "NAME", "STATUS"}, rows)
		})

	case "routes":
		routes, err := p.StaticRoutes(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(routes, func(w io.Writer) {
			rows := make([][]string, 0, len(routes))
			for _, r := range routes {
				rows = append(rows, []string{r.Destination, r.NextHop})
			}
			renderTable(w, []string{"DESTINATION", "NEXT HOP"}, rows)
		})

	case "acls":
		acls, err := p.Acls(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(acls, func(w io.Writer) {
			rows := make([][]string, 0, len(acls))
			for _, acl := range acls {
				rows = append(rows, []string{acl.Name, acl.Type})
			}
			renderTable(w, []string{"NAME", "TYPE"}, rows)
		})

	case "acl":
		rules, err := p.AclRules(ctx, device, aclName)
		if err != nil {
			return err
		}
		return a.out.print(rules, func(w io.Writer) {
			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				rows = append(rows, []string{strconv.Itoa(r.Order), r.Action, orDash(r.Protocol), orDash(r.Source), orDash(r.Destination), orDash(r.Options)})
			}
			renderTable(w, []string{"ORDER", "ACTION", "PROTOCOL", "SOURCE", "DESTINATION", "OPTIONS"}, rows)
		})

	case "compliance":
		results, err := p.Compliance(ctx, device)
		if err != nil {
			return err
		}
		return a.out.print(results, func(w io.Writer) {
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Rule, strings.ToUpper(string(r.Status)), r.Details})
			}
			renderTable(w, []string{"RULE", "STATUS", "DETAILS"}, rows)
		})

	default:
		return fmt.Errorf("unknown show target: %s", what)
	}
}

func interfaceTable(w io.Writer, ifaces []domain.Interface) {
	rows := make([][]string, 0, len(ifaces))
	for _, i := range ifaces {
		vlan := "-"
		if i.AccessVLAN > 0 {
			vlan = strconv.Itoa(i.AccessVLAN)
		}
		rows = append(rows, []string{i.Name, orDash(i.Address), orDash(i.OperStatus), orDash(i.AdminStatus), vlan, i.Description})
	}
	renderTable(w, []string{"INTERFACE", "ADDRESS", "OPER", "ADMIN", "VLAN", "DESCRIPTION"}, rows)
}

func runCommands(ctx context.Context, g globalFlags, args []string) error {
	fs := newFlagSet("run", "run [-config-mode] <device> <command>...")
	configMode := fs.Bool("config-mode", false, "send as a configuration batch (CLI errors abort the batch)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("a device and at least one command are required")
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	device, err := a.device(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	batch := domain.NewQueryBatch(fs.Args()[1:]...)
	if *configMode {
		batch = domain.NewConfigBatch(fs.Args()[1:]...)
	}
	result, err := a.pipeline.Run(ctx, device, batch)
	return printResult(a, result, err)
}

// printResult prints the completed outputs, then the batch error if any
func printResult(a *app, result *executor.Result, err error) error {
	if result != nil {
		if perr := a.out.print(result, func(w io.Writer) {
			for _, o := range result.Outputs {
				fmt.Fprintf(w, "# %s\n%s\n", o.Command, o.Output)
			}
		}); perr != nil {
			return perr
		}
	}

	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		return fmt.Errorf("%d commands completed before the failure: %w", batchErr.Index, err)
	}
	return err
}

func runMass(ctx context.Context, g globalFlags, args []string) error {
	fs := newFlagSet("mass", "mass [-vendor <family>] [-devices a,b,c] [-config-mode] <command>...")
	vendorTag := fs.String("vendor", "", "only devices of this vendor family")
	deviceList := fs.String("devices", "", "comma-separated device references (default: whole inventory)")
	configMode := fs.Bool("config-mode", false, "send as a configuration batch")
	workers := fs.Int("workers", 0, "concurrent devices (default: from posture)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("at least one command is required")
	}

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	var refs []string
	if *deviceList != "" {
		refs = strings.Split(*deviceList, ",")
	}
	devices, err := a.devices(ctx, refs, *vendorTag)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices selected")
	}

	batch := domain.NewQueryBatch(fs.Args()...)
	if *configMode {
		batch = domain.NewConfigBatch(fs.Args()...)
	}

	n := a.behavior.MassWorkers
	if *workers > 0 {
		n = *workers
	}
	mass := orchestrator.NewMassCommand(a.sessions, a.executor, a.registry,
		orchestrator.WithMassWorkers(n),
		orchestrator.WithMassLogger(a.logger),
	)

	progress := newProgressPrinter("mass", a.out.json)
	outputs := mass.Run(ctx, devices, batch, progress.update)
	progress.done()

	failed := 0
	for _, o := range outputs {
		if o.Err != nil {
			failed++
		}
	}

	if a.out.json {
		type jsonOutput struct {
			Device string           `json:"device"`
			Result *executor.Result `json:"result,omitempty"`
			Error  string           `json:"error,omitempty"`
		}
		rows := make([]jsonOutput, 0, len(outputs))
		for _, o := range outputs {
			row := jsonOutput{Device: o.Device.Label(), Result: o.Result}
			if o.Err != nil {
				row.Error = o.Err.Error()
			}
			rows = append(rows, row)
		}
		if err := a.out.print(rows, nil); err != nil {
			return err
		}
	} else {
		fmt.Fprint(a.out.w, orchestrator.FormatOutputs(outputs))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed", failed, len(outputs))
	}
	return nil
}
