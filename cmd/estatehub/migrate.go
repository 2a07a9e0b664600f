// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/estatehub/estatehub/internal/config"
	"github.com/estatehub/estatehub/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(nil)
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply or inspect the embedded PostgreSQL schema migrations.
The database is taken from the DATABASE_URL environment variable.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(deps, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (all, or the given number of steps)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return oops.Code("INVALID_STEPS").With("steps", args[0]).Errorf("steps must be a positive integer")
				}
				steps = n
			}
			return withMigrator(deps, func(m Migrator) error {
				var err error
				if steps == 0 {
					err = m.Down()
				} else {
					err = m.Steps(-steps)
				}
				if err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(deps, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Print(formatStatus(status))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(deps, func(m Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				line := "version " + strconv.FormatUint(uint64(v), 10)
				if dirty {
					line += " (dirty)"
				}
				cmd.Println(line)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag. Use after
repairing a failed migration by hand. -1 means no migration applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(deps, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator opens a migrator for the configured database, runs fn and
// closes it.
func withMigrator(deps *MigrateDeps, fn func(Migrator) error) (err error) {
	cfg, err := config.Load(configFile, nil, deps.Getenv)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", config.EnvDatabaseURL).
			Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}

	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < -1 {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Errorf("version must be an integer >= -1")
	}
	return v, nil
}

func formatStatus(status store.MigrationStatus) string {
	var b strings.Builder
	b.WriteString("current version: " + strconv.FormatUint(uint64(status.Version), 10))
	if status.Dirty {
		b.WriteString(" (dirty)")
	}
	b.WriteString("\n")
	writeVersions(&b, "applied", status.Applied)
	writeVersions(&b, "pending", status.Pending)
	return b.String()
}

func writeVersions(b *strings.Builder, label string, versions []uint) {
	b.WriteString(label + ":")
	if len(versions) == 0 {
		b.WriteString(" none\n")
		return
	}
	b.WriteString("\n")
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = strconv.FormatUint(uint64(v), 10)
		}
		b.WriteString("  " + name + "\n")
	}
}
