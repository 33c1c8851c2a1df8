package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"netpilot/internal/config"
)

func runSettings(ctx context.Context, g globalFlags, args []string) error {
	verb, rest, err := subcommand(args, "settings show|dump|init")
	if err != nil {
		return err
	}

	switch verb {
	case "show":
		cfg, path, err := loadConfig(g)
		if err != nil {
			return err
		}
		if path == "" {
			path = "(defaults, no config file found)"
		}
		fmt.Printf("Config: %s\n%s\n", path, cfg.Summary())
		return nil

	case "dump":
		cfg, _, err := loadConfig(g)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err

	case "init":
		fs := newFlagSet("settings init", "settings init [-force] [path]")
		force := fs.Bool("force", false, "overwrite an existing file")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		path := g.configPath
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !*force {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown settings command: %s", verb)
	}
}
