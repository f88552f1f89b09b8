package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/bookstore/database/seeders"
	"github.com/shashiranjanraj/bookstore/pkg/migration"
)

// bookstore migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Running migrations…")
		return migration.New(db, os.Stdout).Run()
	},
}

// bookstore migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Rolling back last batch…")
		return migration.New(db, os.Stdout).Rollback()
	},
}

// bookstore migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		return migration.New(db, os.Stdout).Status()
	},
}

// bookstore seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the sample catalog and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Running seeders…")
		return seeders.RunAll(cmd.Context(), db, os.Stdout)
	},
}
