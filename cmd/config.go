package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/redline/internal/config"
)

// ConfigCommand returns the config command.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "redline.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("server:    %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("sessions:  max_age=%s cleanup_interval=%s\n", cfg.Sessions.MaxAge, cfg.Sessions.CleanupInterval)
	fmt.Printf("resource:  backend=%s\n", cfg.Resource.Backend)
	fmt.Printf("diff:      max_unchanged_lines=%d\n", cfg.Diff.MaxUnchangedLines)
	fmt.Printf("ai:        enabled=%t model=%s\n", cfg.AI.Enabled, cfg.AI.Model)
	fmt.Printf("logging:   level=%s pretty=%t\n", cfg.Logging.Level, cfg.Logging.Pretty)
	return nil
}
