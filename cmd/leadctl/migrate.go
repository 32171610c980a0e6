package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mysqft/leadcapture/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down [steps]|version]",
	Short: "Run database migrations",
	Args:  migrateArgs,
	RunE:  runMigrate,
}

func migrateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(0, 2)(cmd, args); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "up", "down", "version":
	default:
		return fmt.Errorf("invalid first argument: %q", args[0])
	}

	if len(args) == 2 {
		if args[0] != "down" {
			return fmt.Errorf("invalid argument combination: %q", args)
		}
		if steps, err := strconv.Atoi(args[1]); err != nil || steps < 1 {
			return fmt.Errorf("invalid step count: %q", args[1])
		}
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return fmt.Errorf("database url required: pass --dsn or set DATABASE_URL")
	}

	switch command {
	case "up":
		if err := postgres.MigrateUp(dsn); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) == 2 {
			steps, _ = strconv.Atoi(args[1])
		}
		if err := postgres.MigrateDown(dsn, steps); err != nil {
			return err
		}
	}

	version, dirty, err := postgres.MigrationVersion(dsn)
	if err != nil {
		return err
	}
	return printResult(cmd, map[string]any{"version": version, "dirty": dirty},
		fmt.Sprintf("schema version %d (dirty=%t)", version, dirty))
}

func init() {
	migrateCmd.Flags().String("dsn", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	rootCmd.AddCommand(migrateCmd)
}
