package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"skylinedb/pkg/api"
	"skylinedb/pkg/config"
	"skylinedb/pkg/core"
	"skylinedb/pkg/logging"
	"skylinedb/pkg/network"
	"skylinedb/pkg/rtree"
	"skylinedb/pkg/skyline"
	"skylinedb/pkg/storage"
)

const (
	Name    = "skylinedb"
	Version = "0.1.0"
)

var (
	logger     zerolog.Logger
	configPath string
	dataset    string
	dev        bool
)

func main() {
	logger = logging.CLILogger()

	var cmdServe = &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP and TCP servers",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmdServe.Flags().StringVarP(&dataset, "dataset", "D", "", "Dataset loaded at startup (text or .db)")
	cmdServe.Flags().BoolVarP(&dev, "dev", "d", false, "Run in dev mode (console logs, debug level).")

	var stats bool
	var cmdCompute = &cobra.Command{
		Use:   "compute <dataset>",
		Short: "Prints the skyline of a dataset as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compute(args[0], stats)
		},
	}
	cmdCompute.Flags().BoolVarP(&stats, "stats", "s", false, "Log traversal statistics.")

	var cmdRoot = &cobra.Command{
		Use:          Name,
		SilenceUsage: true,
		// Default to serve
		RunE: serve,
	}
	cmdRoot.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: configs/skyline.yaml)")
	cmdRoot.Flags().StringVarP(&dataset, "dataset", "D", "", "Dataset loaded at startup (text or .db)")
	cmdRoot.Flags().BoolVarP(&dev, "dev", "d", false, "Run in dev mode (console logs, debug level).")
	cmdRoot.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", Name, Version)
		},
	})
	cmdRoot.AddCommand(cmdServe, cmdCompute)

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		return err
	}
	if dev {
		cfg.Log.Console = true
		cfg.Log.Level = "debug"
	}
	logger = logging.New(cfg.Log)

	store := core.NewSkylineStore(cfg, logger)
	if dataset == "" {
		dataset = cfg.Dataset.Path
	}
	if dataset != "" {
		n, err := store.LoadFile(dataset)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load dataset")
			return err
		}
		logger.Info().Str("path", dataset).Int("points", n).Int("skyline", store.SkylineSize()).Msg("dataset ready")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	httpServer := api.NewServer(store, logger)
	httpServer.SetRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst)
	g.Go(func() error {
		return httpServer.Serve(ctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		return network.NewTCPServer(store, logger).Serve(ctx, cfg.Server.TCPAddr)
	})

	logger.Info().Str("http", cfg.Server.Addr).Str("tcp", cfg.Server.TCPAddr).Msgf("%s %s started", Name, Version)
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func compute(path string, withStats bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	entries, err := storage.LoadDataset(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	tree := rtree.Load(cfg.Index.MaxChildren, entries)
	sky, st := skyline.ComputeWithStats(tree.Root())
	if withStats {
		logger.Info().
			Int("points", tree.Size()).
			Int("height", tree.Height()).
			Int("nodes_expanded", st.NodesExpanded).
			Int("entries_checked", st.EntriesChecked).
			Int("pruned", st.Pruned).
			Int("skyline", st.Accepted).
			Msg("skyline computed")
	}

	fmt.Println("id,x,y")
	for _, e := range sky {
		fmt.Printf("%d,%s,%s\n", e.ID,
			strconv.FormatFloat(e.Point.X, 'g', -1, 64),
			strconv.FormatFloat(e.Point.Y, 'g', -1, 64))
	}
	return nil
}
