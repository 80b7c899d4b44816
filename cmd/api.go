package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/redline/internal/api"
	"github.com/redline/internal/config"
	"github.com/redline/internal/logging"
	"github.com/redline/internal/proposer"
	"github.com/redline/internal/resource"
	"github.com/redline/internal/review"
	"github.com/redline/internal/session"
)

// APICommand returns the CLI command for starting the API server.
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the redline API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runAPI,
	}
}

func runAPI(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)

	resources, cleanup, err := buildResourceStore(c.Context, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessions := session.NewStore(session.WithMaxAge(cfg.Sessions.MaxAge))

	var opts []review.Option
	if cfg.AI.Enabled {
		p, err := proposer.New(c.Context, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return fmt.Errorf("failed to initialize rewrite proposer: %w", err)
		}
		opts = append(opts, review.WithProposer(p))
	}

	service := review.NewService(sessions, resources, opts...)
	server := api.NewServer(service, cfg.Server.Host, cfg.Server.Port, cfg.Diff.MaxUnchangedLines)

	stop := make(chan struct{})
	defer close(stop)
	go runSessionCleanup(sessions, cfg.Sessions.CleanupInterval, stop)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("resourceBackend", cfg.Resource.Backend).
		Bool("aiEnabled", cfg.AI.Enabled).
		Msg("starting redline API server")

	return server.Start()
}

func buildResourceStore(ctx context.Context, cfg *config.Config) (resource.Store, func(), error) {
	switch cfg.Resource.Backend {
	case "memory":
		return resource.NewMemoryStore(), nil, nil

	case "http":
		return resource.NewHTTPStore(cfg.Resource.BaseURL, cfg.Resource.Token), nil, nil

	case "postgres":
		store, err := resource.NewPostgresStore(ctx, cfg.Resource.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres resource store: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown resource backend %q", cfg.Resource.Backend)
	}
}

// runSessionCleanup sweeps expired sessions until stop closes. Expired
// sessions are already invisible to lookups; this reclaims the memory.
func runSessionCleanup(sessions *session.Store, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if removed := sessions.CleanupExpired(); removed > 0 {
				log.Info().Int("removed", removed).Msg("expired_sessions_cleaned")
			}
		}
	}
}
