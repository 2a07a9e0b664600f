// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/pkg/errutil"
)

type fakeMigrator struct {
	calls   []string
	steps   int
	forced  int
	version uint
	dirty   bool
	err     error
	closed  bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, f.dirty, f.err
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Status() (store.MigrationStatus, error) {
	f.calls = append(f.calls, "status")
	return store.MigrationStatus{Version: f.version, Dirty: f.dirty, Applied: []uint{1}, Pending: []uint{2}}, f.err
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func runMigrate(t *testing.T, fake *fakeMigrator, env map[string]string, args ...string) (string, error) {
	t.Helper()
	configFile = ""

	var gotURL string
	cmd := newMigrateCmdWithDeps(&MigrateDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			gotURL = url
			return fake, nil
		},
		Getenv: func(key string) string { return env[key] },
	})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		assert.Equal(t, env["DATABASE_URL"], gotURL)
	}
	return buf.String(), err
}

var dbEnv = map[string]string{"DATABASE_URL": "postgres://estatehub@localhost/estatehub"}

func TestMigrate_Subcommands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCalls []string
		wantOut   string
	}{
		{"up", []string{"up"}, []string{"up"}, "Migrations applied"},
		{"down all", []string{"down"}, []string{"down"}, "Migrations rolled back"},
		{"down steps", []string{"down", "2"}, []string{"steps"}, "Migrations rolled back"},
		{"version", []string{"version"}, []string{"version"}, "version 2"},
		{"force", []string{"force", "1"}, []string{"force"}, "Forced version 1"},
		{"status", []string{"status"}, []string{"status"}, "000001_create_users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeMigrator{version: 2}
			out, err := runMigrate(t, fake, dbEnv, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, fake.calls)
			assert.Contains(t, out, tt.wantOut)
			assert.True(t, fake.closed)
		})
	}
}

func TestMigrate_DownStepsAreNegative(t *testing.T) {
	fake := &fakeMigrator{}
	_, err := runMigrate(t, fake, dbEnv, "down", "3")
	require.NoError(t, err)
	assert.Equal(t, -3, fake.steps)
}

func TestMigrate_StatusShowsDirty(t *testing.T) {
	fake := &fakeMigrator{version: 1, dirty: true}
	out, err := runMigrate(t, fake, dbEnv, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "current version: 1 (dirty)")
	assert.Contains(t, out, "pending:\n  000002_create_listings")
}

func TestMigrate_Failures(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		fake := &fakeMigrator{}
		_, err := runMigrate(t, fake, nil, "up")
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		assert.Empty(t, fake.calls)
	})

	t.Run("migration error is returned and migrator closed", func(t *testing.T) {
		fake := &fakeMigrator{err: errors.New("boom")}
		_, err := runMigrate(t, fake, dbEnv, "up")
		require.Error(t, err)
		assert.True(t, fake.closed)
	})

	t.Run("bad steps", func(t *testing.T) {
		fake := &fakeMigrator{}
		_, err := runMigrate(t, fake, dbEnv, "down", "zero")
		errutil.AssertErrorCode(t, err, "INVALID_STEPS")
		assert.Empty(t, fake.calls)
	})
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{"0", 0, false},
		{"-1", -1, false},
		{" 4 ", 4, false},
		{"-2", 0, true},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
