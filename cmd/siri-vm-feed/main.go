package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	sirivmfeed "github.com/midlandbus/siri-vm-feed"
	"github.com/midlandbus/siri-vm-feed/ingest"
	"github.com/midlandbus/siri-vm-feed/store"
)

func main() {
	sirivmfeed.InitLogging()

	app := &cli.App{
		Name:        "siri-vm-feed",
		Description: "SIRI-VM vehicle position feed for BODS",

		Commands: []*cli.Command{
			serverCommand(),
			oneshotCommand(),
			ingestCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "run the SIRI-VM feed server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ingest",
				Usage: "also poll the configured GTFS-RT feed into the position store",
			},
		},
		Action: func(c *cli.Context) error {
			if err := sirivmfeed.LoadAppConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := sirivmfeed.Config

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			conn := connectStore(ctx, cfg)
			positions := conn.Positions()
			defer func() { _ = conn.Disconnect(context.Background()) }()

			var provider sirivmfeed.Provider
			switch cfg.Feed.Source {
			case "live":
				provider = sirivmfeed.NewLiveProvider(positions, cfg.Feed.FreshnessWindow())
			default:
				provider = sirivmfeed.NewSimulator(cfg.Feed.SyntheticVehicles, cfg.Feed.SyntheticValidity(), nil)
			}

			if c.Bool("ingest") {
				if cfg.GTFSRT.VehiclePositionsURL == "" {
					return fmt.Errorf("ingest requested but gtfsrt.vehiclePositionsURL is not configured")
				}
				poller := ingest.NewPoller(
					cfg.GTFSRT.VehiclePositionsURL,
					cfg.GTFSRT.OperatorRef,
					cfg.GTFSRT.ReadInterval(),
					cfg.GTFSRT.Timeout(),
					positions,
				)
				go poller.Run(ctx)
			}

			feed := sirivmfeed.NewFeed(provider, cfg.ProducerRef)
			server := sirivmfeed.NewServer(feed, positions, conn.Sessions())
			server.Start(cfg.Server.Port)
			server.HandleGracefulShutdown()
			return nil
		},
	}
}

func oneshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "oneshot",
		Usage: "print one SIRI-VM document to stdout and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lineRef", Usage: "LineRef filter"},
			&cli.StringFlag{Name: "operatorRef", Usage: "OperatorRef filter"},
			&cli.StringFlag{Name: "vehicleRef", Usage: "VehicleRef filter"},
			&cli.IntFlag{Name: "max", Value: -1, Usage: "MaximumNumberOfVehicles"},
		},
		Action: func(c *cli.Context) error {
			if err := sirivmfeed.LoadAppConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := sirivmfeed.Config

			ctx := context.Background()
			var provider sirivmfeed.Provider
			if cfg.Feed.Source == "live" {
				conn := connectStore(ctx, cfg)
				defer func() { _ = conn.Disconnect(context.Background()) }()
				provider = sirivmfeed.NewLiveProvider(conn.Positions(), cfg.Feed.FreshnessWindow())
			} else {
				provider = sirivmfeed.NewSimulator(cfg.Feed.SyntheticVehicles, cfg.Feed.SyntheticValidity(), nil)
			}

			feed := sirivmfeed.NewFeed(provider, cfg.ProducerRef)
			body, err := feed.VehicleMonitoring(ctx, sirivmfeed.Criteria{
				LineRef:     c.String("lineRef"),
				OperatorRef: c.String("operatorRef"),
				VehicleRef:  c.String("vehicleRef"),
				MaxVehicles: c.Int("max"),
			})
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "poll the configured GTFS-RT feed into the position store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "once",
				Usage: "run a single poll cycle and exit",
			},
		},
		Action: func(c *cli.Context) error {
			if err := sirivmfeed.LoadAppConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := sirivmfeed.Config
			if cfg.GTFSRT.VehiclePositionsURL == "" {
				return fmt.Errorf("gtfsrt.vehiclePositionsURL is not configured")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			conn := connectStore(ctx, cfg)
			defer func() { _ = conn.Disconnect(context.Background()) }()

			poller := ingest.NewPoller(
				cfg.GTFSRT.VehiclePositionsURL,
				cfg.GTFSRT.OperatorRef,
				cfg.GTFSRT.ReadInterval(),
				cfg.GTFSRT.Timeout(),
				conn.Positions(),
			)

			if c.Bool("once") {
				n, err := poller.PollOnce(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("positions", n).Msg("Ingest complete")
				return nil
			}

			poller.Run(ctx)
			return nil
		},
	}
}

// connectStore opens Mongo; a failed ping is logged but not fatal so the
// synthetic feed stays servable without a database.
func connectStore(ctx context.Context, cfg sirivmfeed.AppConfig) *store.Connection {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := store.Connect(connectCtx, cfg.Mongo.ConnectionString, cfg.Mongo.Database)
	if conn == nil {
		log.Fatal().Err(err).Msg("Failed to create database client")
	}
	if err != nil {
		log.Warn().Err(err).Msg("Database unreachable, continuing degraded")
	}
	return conn
}
