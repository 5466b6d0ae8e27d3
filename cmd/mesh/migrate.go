package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/socialmesh/database"
	"github.com/dtroode/socialmesh/internal/repository/postgres"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the identity database schema",
	}

	withDB := func(fn func(db *postgres.Connection) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := postgres.Open(cmd.Context(), a.cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(db)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(db *postgres.Connection) error {
				return database.Migrate(db.DB)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withDB(func(db *postgres.Connection) error {
				return database.Rollback(db.DB)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withDB(func(db *postgres.Connection) error {
				v, err := database.Version(db.DB)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}),
		},
	)
	return cmd
}
