package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"netpilot/internal/configdiff"
	"netpilot/internal/domain"
	"netpilot/internal/executor"
	"netpilot/internal/pipeline"
)

const configureUsage = "configure <interface|vlan|route|acl-rule> [flags] <device>"

func runConfigure(ctx context.Context, g globalFlags, args []string) error {
	what, rest, err := subcommand(args, configureUsage)
	if err != nil {
		return err
	}

	fs := newFlagSet("configure "+what, configureUsage)
	save := fs.Bool("save", false, "save or commit the configuration afterwards")

	var apply func(ctx context.Context, a *app, device domain.Device) (*executor.Result, error)
	switch what {
	case "interface":
		name := fs.String("name", "", "interface name")
		description := fs.String("description", "", "interface description")
		disable := fs.Bool("disable", false, "administratively disable the interface")
		vlan := fs.Int("vlan", 0, "access VLAN (0 leaves membership unchanged)")
		apply = func(ctx context.Context, a *app, device domain.Device) (*executor.Result, error) {
			if *name == "" {
				return nil, fmt.Errorf("-name is required")
			}
			return a.pipeline.ConfigureInterface(ctx, device, domain.InterfaceChange{
				Name:        *name,
				Description: *description,
				Enabled:     !*disable,
				AccessVLAN:  *vlan,
			})
		}

	case "vlan":
		id := fs.Int("id", 0, "VLAN ID (1-4094)")
		name := fs.String("name", "", "VLAN name")
		apply = func(ctx context.Context, a *app, device domain.Device) (*executor.Result, error) {
			if *id < 1 || *id > 4094 {
				return nil, fmt.Errorf("-id must be between 1 and 4094")
			}
			return a.pipeline.CreateVlan(ctx, device, *id, *name)
		}

	case "route":
		destination := fs.String("destination", "", "destination prefix in CIDR form")
		nextHop := fs.String("next-hop", "", "next-hop address")
		apply = func(ctx context.Context, a *app, device domain.Device) (*executor.Result, error) {
			if *destination == "" || *nextHop == "" {
				return nil, fmt.Errorf("-destination and -next-hop are required")
			}
			return a.pipeline.AddStaticRoute(ctx, device, *destination, *nextHop)
		}

	case "acl-rule":
		acl := fs.String("acl", "", "access list, filter, or chain name")
		order := fs.Int("order", 10, "sequence number or term order")
		action := fs.String("action", domain.ActionPermit, "permit or deny")
		protocol := fs.String("protocol", "ip", "protocol")
		source := fs.String("source", "any", "source prefix")
		destination := fs.String("destination", "any", "destination prefix")
		options := fs.String("options", "", "vendor-specific match options")
		apply = func(ctx context.Context, a *app, device domain.Device) (*executor.Result, error) {
			if *acl == "" {
				return nil, fmt.Errorf("-acl is required")
			}
			if *action != domain.ActionPermit && *action != domain.ActionDeny {
				return nil, fmt.Errorf("-action must be permit or deny")
			}
			return a.pipeline.AddAclRule(ctx, device, *acl, domain.AclRule{
				Order:       *order,
				Action:      *action,
				Protocol:    *protocol,
				Source:      *source,
				Destination: *destination,
				Options:     *options,
			})
		}

	default:
		return fmt.Errorf("unknown configure target: %s", what)
	}

	if err := fs.Parse(rest); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one device is required")
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

	result, err := apply(ctx, a, device)
	if err := printResult(a, result, err); err != nil {
		return err
	}
	if *save {
		return saveConfig(ctx, a, device)
	}
	return nil
}

func saveConfig(ctx context.Context, a *app, device domain.Device) error {
	result, err := a.pipeline.SaveConfig(ctx, device)
	if err := printResult(a, result, err); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "configuration saved on %s\n", device.Label())
	return nil
}

// varsFlag collects repeated -var name=value flags
type varsFlag map[string]string

func (v varsFlag) String() string {
	pairs := make([]string, 0, len(v))
	for k, val := range v {
		pairs = append(pairs, k+"="+val)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (v varsFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v[strings.TrimSpace(name)] = value
	return nil
}

func runTemplate(ctx context.Context, g globalFlags, args []string) error {
	verb, rest, err := subcommand(args, "template vars|render|apply -file <template> [-var name=value]... [device...]")
	if err != nil {
		return err
	}

	fs := newFlagSet("template "+verb, "template "+verb+" -file <template> [-var name=value]... [device...]")
	file := fs.String("file", "", "template file with {{name}} placeholders")
	vars := varsFlag{}
	fs.Var(vars, "var", "template variable as name=value (repeatable)")
	save := fs.Bool("save", false, "save or commit the configuration afterwards")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	template := string(data)

	switch verb {
	case "vars":
		for _, name := range pipeline.TemplateVariables(template) {
			fmt.Println(name)
		}
		return nil

	case "render":
		lines, err := pipeline.RenderTemplate(template, vars)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(lines, "\n"))
		return nil

	case "apply":
		if fs.NArg() == 0 {
			return fmt.Errorf("at least one device is required")
		}
		a, err := newApp(g)
		if err != nil {
			return err
		}
		defer a.Close()

		devices, err := a.devices(ctx, fs.Args(), "")
		if err != nil {
			return err
		}
		for _, device := range devices {
			fmt.Fprintf(a.out.w, "--- %s ---\n", device.Label())
			result, err := a.pipeline.ApplyTemplate(ctx, device, template, vars)
			if err := printResult(a, result, err); err != nil {
				return fmt.Errorf("%s: %w", device.Label(), err)
			}
			if *save {
				if err := saveConfig(ctx, a, device); err != nil {
					return fmt.Errorf("%s: %w", device.Label(), err)
				}
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown template command: %s", verb)
	}
}

func runConfig(ctx context.Context, g globalFlags, args []string) error {
	verb, rest, err := subcommand(args, "config running|save|diff")
	if err != nil {
		return err
	}

	switch verb {
	case "running":
		return configRunning(ctx, g, rest)
	case "save":
		if len(rest) != 1 {
			return fmt.Errorf("usage: netpilot config save <device>")
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
		return saveConfig(ctx, a, device)
	case "diff":
		return configDiff(ctx, g, rest)
	default:
		return fmt.Errorf("unknown config command: %s", verb)
	}
}

func configRunning(ctx context.Context, g globalFlags, args []string) error {
	fs := newFlagSet("config running", "config running [-o <file>] <device>")
	outPath := fs.String("o", "", "write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one device is required")
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
	text, err := a.pipeline.RunningConfig(ctx, device)
	if err != nil {
		return err
	}

	if *outPath == "" {
		fmt.Fprintln(a.out.w, text)
		return nil
	}
	if err := os.WriteFile(*outPath, []byte(text+"\n"), 0600); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %s running configuration to %s (%d bytes)\n", device.Label(), *outPath, len(text)+1)
	return nil
}

// configDiff compares two sources, each a device reference or file:<path>
func configDiff(ctx context.Context, g globalFlags, args []string) error {
	fs := newFlagSet("config diff", "config diff [-context n] [-color] [-raw] <device|file:path> <device|file:path>")
	contextLines := fs.Int("context", 3, "unchanged lines around each change")
	color := fs.Bool("color", false, "colorize the diff")
	raw := fs.Bool("raw", false, "keep timestamp and size banner lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("two sources are required")
	}

	var a *app
	load := func(ref string) (configdiff.Source, error) {
		if path, ok := strings.CutPrefix(ref, "file:"); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return configdiff.Source{}, err
			}
			return configdiff.Source{Name: path, Text: string(data)}, nil
		}
		if a == nil {
			var err error
			if a, err = newApp(g); err != nil {
				return configdiff.Source{}, err
			}
		}
		device, err := a.device(ctx, ref)
		if err != nil {
			return configdiff.Source{}, err
		}
		text, err := a.pipeline.RunningConfig(ctx, device)
		if err != nil {
			return configdiff.Source{}, err
		}
		return configdiff.Source{Name: device.Label(), Text: text}, nil
	}
	defer func() {
		if a != nil {
			a.Close()
		}
	}()

	from, err := load(fs.Arg(0))
	if err != nil {
		return err
	}
	to, err := load(fs.Arg(1))
	if err != nil {
		return err
	}

	opts := []configdiff.Option{configdiff.WithContext(*contextLines)}
	if *raw {
		opts = append(opts, configdiff.WithVolatileLines())
	}
	diff, err := configdiff.Unified(from, to, opts...)
	if err != nil {
		return err
	}

	stats := configdiff.Summarize(diff)
	if g.jsonOutput {
		return newOutput(true).print(map[string]interface{}{
			"from":    from.Name,
			"to":      to.Name,
			"added":   stats.Added,
			"removed": stats.Removed,
			"diff":    diff,
		}, nil)
	}
	if !stats.Changed() {
		fmt.Println("configurations are identical")
		return nil
	}
	if *color {
		diff = configdiff.Colorize(diff)
	}
	fmt.Print(diff)
	fmt.Fprintf(os.Stderr, "%s added, %s removed\n", plural(stats.Added, "line"), plural(stats.Removed, "line"))
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
