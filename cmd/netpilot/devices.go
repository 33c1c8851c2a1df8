package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"netpilot/internal/codec"
	"netpilot/internal/domain"
)

func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: netpilot %s\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// subcommand splits "<verb> [args]" for commands with verbs
func subcommand(args []string, usage string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: netpilot %s", usage)
	}
	return args[0], args[1:], nil
}

func runDevices(ctx context.Context, g globalFlags, args []string) error {
	verb, rest, err := subcommand(args, "devices list|add|remove|facts|import|export")
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
		return devicesList(ctx, a)
	case "add":
		return devicesAdd(ctx, a, rest)
	case "remove", "rm":
		return devicesRemove(ctx, a, rest)
	case "facts":
		return devicesFacts(ctx, a, rest)
	case "import":
		return devicesImport(ctx, a, rest)
	case "export":
		return devicesExport(ctx, a, rest)
	default:
		return fmt.Errorf("unknown devices command: %s", verb)
	}
}

func devicesList(ctx context.Context, a *app) error {
	devices, err := a.repo.ListDevices(ctx)
	if err != nil {
		return err
	}
	return a.out.print(devices, func(w io.Writer) {
		rows := make([][]string, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, []string{
				d.Name,
				d.Address,
				strconv.Itoa(d.EffectivePort()),
				string(d.Vendor),
				orDash(d.Facts.Model),
				orDash(d.Facts.OSVersion),
				orDash(d.CredentialRef),
			})
		}
		renderTable(w, []string{"NAME", "ADDRESS", "PORT", "VENDOR", "MODEL", "VERSION", "CREDENTIAL"}, rows)
	})
}

func devicesAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("devices add", "devices add -vendor <family> [-name <name>] [-port <n>] [-cred <profile>] <address>")
	name := fs.String("name", "", "device name (default: the address)")
	port := fs.Int("port", domain.DefaultSSHPort, "SSH port")
	vendorTag := fs.String("vendor", "", "vendor family: cisco_ios, juniper_junos, mikrotik_routeros")
	cred := fs.String("cred", "", "credential profile (default: the configured default)")
	learn := fs.Bool("learn", false, "connect and record hostname, version, and model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one address is required")
	}

	family, err := domain.ParseVendorFamily(*vendorTag)
	if err != nil {
		return err
	}
	if *cred != "" {
		if _, err := a.credentials.Profile(*cred); err != nil {
			return err
		}
	}

	device, err := a.repo.AddDevice(ctx, domain.Device{
		Name:          *name,
		Address:       fs.Arg(0),
		Port:          *port,
		Vendor:        family,
		CredentialRef: *cred,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out.w, "added %s [%s] id=%s\n", device.Label(), device.Vendor, device.ID)

	if *learn {
		facts, err := a.pipeline.LearnFacts(ctx, device)
		if err != nil {
			return fmt.Errorf("device added, fact learning failed: %w", err)
		}
		printFacts(a.out.w, device, facts)
	}
	return nil
}

func devicesRemove(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: netpilot devices remove <device>...")
	}
	for _, ref := range args {
		device, err := a.device(ctx, ref)
		if err != nil {
			return err
		}
		if err := a.repo.DeleteDevice(ctx, device.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.out.w, "removed %s\n", device.Label())
	}
	return nil
}

func devicesFacts(ctx context.Context, a *app, args []string) error {
	devices, err := a.devices(ctx, args, "")
	if err != nil {
		return err
	}
	for _, d := range devices {
		facts, err := a.pipeline.LearnFacts(ctx, d)
		if err != nil {
			fmt.Fprintf(a.out.w, "%s: %v\n", d.Label(), err)
			continue
		}
		printFacts(a.out.w, d, facts)
	}
	return nil
}

func printFacts(w io.Writer, d domain.Device, facts domain.DeviceFacts) {
	learned := "-"
	if facts.LearnedAt != nil {
		learned = facts.LearnedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(w, "%s: hostname=%s model=%s version=%s learned=%s\n",
		d.Label(), orDash(facts.Hostname), orDash(facts.Model), orDash(facts.OSVersion), learned)
}

func devicesImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("devices import", "devices import -format <"+strings.Join(codec.Formats(), "|")+"> <file|->")
	format := fs.String("format", "yaml", "input format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("an input file is required")
	}

	c, err := codec.ForFormat(*format)
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if path := fs.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	devices, err := c.Parse(in)
	if err != nil {
		return err
	}
	added, err := a.repo.ImportDevices(ctx, devices)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out.w, "imported %d of %d devices (%d already known)\n", added, len(devices), len(devices)-added)
	return nil
}

func devicesExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("devices export", "devices export -format <"+strings.Join(codec.Formats(), "|")+"> [-o <file>]")
	format := fs.String("format", "yaml", "output format")
	outPath := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := codec.ForFormat(*format)
	if err != nil {
		return err
	}
	devices, err := a.repo.ListDevices(ctx)
	if err != nil {
		return err
	}

	if *outPath == "" {
		return c.Export(devices, a.out.w)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	if err := c.Export(devices, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d devices to %s\n", len(devices), *outPath)
	return nil
}
