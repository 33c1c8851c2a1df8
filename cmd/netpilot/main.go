package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globalFlags struct {
	configPath string
	jsonOutput bool
	verbose    bool
}

// command is one subcommand; it receives the arguments after its name
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, g globalFlags, args []string) error
}

func commands() []command {
	return []command{
		{"devices", "Manage the device inventory", runDevices},
		{"show", "Query a device and print canonical records", runShow},
		{"run", "Send raw commands to one device", runCommands},
		{"mass", "Send raw commands to many devices at once", runMass},
		{"configure", "Apply a configuration change to a device", runConfigure},
		{"template", "Render or apply a configuration template", runTemplate},
		{"config", "Show, save, or diff device configurations", runConfig},
		{"discover", "Sweep an address range and register devices", runDiscover},
		{"monitor", "Poll devices and evaluate alert rules", runMonitor},
		{"rules", "Manage stored alert rules", runRules},
		{"hosts", "List the usable host addresses of a subnet", runHosts},
		{"settings", "Show or write the netpilot configuration", runSettings},
	}
}

var errShowUsage = errors.New("show usage")

func main() {
	g, name, args, err := parseGlobal(os.Args[1:])
	if errors.Is(err, errShowUsage) {
		printUsage(os.Stdout)
		if len(os.Args) == 1 {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch name {
	case "version":
		fmt.Printf("netpilot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	case "help":
		printUsage(os.Stdout)
		return
	}

	for _, c := range commands() {
		if c.name == name {
			err = c.run(ctx, g, args)
			if errors.Is(err, flag.ErrHelp) {
				return
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", name)
	printUsage(os.Stderr)
	os.Exit(2)
}

func parseGlobal(args []string) (globalFlags, string, []string, error) {
	var g globalFlags
	fs := flag.NewFlagSet("netpilot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&g.configPath, "config", "", "config file (default: $NETPILOT_CONFIG, ./netpilot.yaml, ~/.config/netpilot/config.yaml)")
	fs.BoolVar(&g.jsonOutput, "json", false, "print JSON instead of tables")
	fs.BoolVar(&g.verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return g, "", nil, errShowUsage
		}
		return g, "", nil, err
	}
	if fs.NArg() == 0 {
		return g, "", nil, errShowUsage
	}
	return g, fs.Arg(0), fs.Args()[1:], nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: netpilot [-config <file>] [-json] [-v] <command> [arguments]

Commands:
`)
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprint(w, `  version    Print the version

Run 'netpilot <command> -h' for the flags of a command.
`)
}
