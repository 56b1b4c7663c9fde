package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alienxp03/arena/internal/config"
	"github.com/alienxp03/arena/internal/engine"
	"github.com/alienxp03/arena/internal/llm"
	"github.com/alienxp03/arena/internal/prefetch"
	"github.com/alienxp03/arena/internal/stage"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/internal/validate"
)

var (
	dbPath    string
	cfgPath   string
	debug     bool
	appConfig *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Staged AI debates and discussions",
	Long: `arena runs structured debates between two AI personas.

Sessions follow a fixed stage plan (quick, pro or discussion). Each call to
"next" produces one stage; a judge scores debates at the end.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(os.Stderr, false)

		var err error
		if cfgPath != "" {
			appConfig, err = config.LoadFrom(cfgPath)
		} else {
			appConfig, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			appConfig.Storage.DBPath = dbPath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.arena/arena.db)")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default: ~/.arena/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupLogging installs the default slog logger. The server logs JSON,
// interactive commands log text.
func setupLogging(w io.Writer, jsonOutput bool) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler
	if jsonOutput {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func getStorage() (storage.Storage, error) {
	path := appConfig.Storage.DBPath
	if path == "" {
		path = storage.DefaultDBPath()
	}

	slog.Debug("Opening storage", "path", path)
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// app bundles the pieces every session command needs.
type app struct {
	store  storage.Storage
	engine *engine.Engine
}

func (a *app) Close() {
	a.engine.Close()
	a.store.Close()
}

// newApp wires storage, the configured adapter and the engine.
// Prefetch is only useful for long-lived processes; one-shot commands turn
// it off unless keepPrefetch is set.
func newApp(keepPrefetch bool) (*app, error) {
	store, err := getStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	adapter, err := appConfig.BuildAdapter()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize llm adapter: %w", err)
	}

	var classifier validate.Classifier
	if appConfig.Engine.ClosingClassifier {
		classifier = llm.NewClosingClassifier(adapter)
	}

	cache := prefetch.NewCache(appConfig.Engine.PrefetchTTL, appConfig.Engine.PrefetchMaxEntries)
	eng := engine.New(store, stage.NewRegistry(), adapter, validate.New(classifier), cache,
		engine.WithPrefetch(appConfig.Engine.PrefetchEnabled && keepPrefetch))

	return &app{store: store, engine: eng}, nil
}
