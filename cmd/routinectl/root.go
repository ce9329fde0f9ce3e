package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"routines/internal/adapters/storage"
	routineStore "routines/internal/adapters/storage/routine"
	"routines/internal/config"
)

// cliEnv is shared by all subcommands once the root pre-run has opened the store.
type cliEnv struct {
	db    *sql.DB
	store *routineStore.SQLiteStore
}

func generateID() string {
	return uuid.New().String()
}

// newRootCmd creates the routinectl command tree.
func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	cmd := &cobra.Command{
		Use:           "routinectl",
		Short:         "Inspect and edit stored workout routines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			if err := config.Init(cfgFile); err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			level := cfg.SlogLevel()
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			db, err := openDB(cfg.DBPath)
			if err != nil {
				return err
			}
			env.db = db
			env.store = routineStore.NewSQLiteStore(storage.NewTimedDB(db, nil, cfg.SlowQueryMs))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if env.db == nil {
				return nil
			}
			return env.db.Close()
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default .routines.yaml)")
	cmd.PersistentFlags().String("db", "", "database path (overrides db_path)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlag("db_path", cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(
		newListCmd(env),
		newShowCmd(env),
		newImportCmd(env),
		newExportCmd(env),
		newMoveCmd(env),
	)
	return cmd
}

// openDB opens and migrates the routine database at path.
func openDB(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.InitDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// now is a variable for testability.
var now = time.Now
