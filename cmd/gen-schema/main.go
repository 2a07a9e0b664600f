// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Command gen-schema writes the config file JSON Schema. With --check it
// only reports whether the file on disk matches the Config struct.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/estatehub/estatehub/internal/config"
)

const defaultOut = "schemas/config.schema.json"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("gen-schema", pflag.ContinueOnError)
	out := flags.StringP("out", "o", defaultOut, "schema output path")
	check := flags.Bool("check", false, "fail if the schema on disk is stale instead of writing it")
	if err := flags.Parse(args); err != nil {
		return oops.Code("SCHEMA_ARGS_INVALID").Wrap(err)
	}

	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}
	schema = append(schema, '\n')

	if *check {
		return checkSchema(*out, schema)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o750); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("path", *out).Wrap(err)
	}
	if err := os.WriteFile(*out, schema, 0o600); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("path", *out).Wrap(err)
	}
	_, _ = fmt.Fprintf(stdout, "Generated %s\n", *out)
	return nil
}

func checkSchema(path string, want []byte) error {
	got, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if errors.Is(err, fs.ErrNotExist) {
		return oops.Code("SCHEMA_MISSING").With("path", path).Errorf("%s does not exist; run gen-schema", path)
	}
	if err != nil {
		return oops.Code("SCHEMA_READ_FAILED").With("path", path).Wrap(err)
	}
	if !bytes.Equal(got, want) {
		return oops.Code("SCHEMA_STALE").With("path", path).Errorf("%s is out of date; run gen-schema", path)
	}
	return nil
}
