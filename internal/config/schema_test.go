// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/config"
)

func TestGenerateSchema(t *testing.T) {
	raw, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	assert.Equal(t, config.SchemaID, schema["$id"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"env", "http", "log", "database", "store", "auth", "cors", "sso", "listing"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, string(raw), "jwt", "secrets stay out of the schema")
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"empty document", "", false},
		{"durations as strings", "store:\n  timeout: 3s\nauth:\n  token_ttl: 12h\n", false},
		{"integers", "listing:\n  max_rooms: 12\n  max_price: 20000000\n", false},
		{"origin list", "cors:\n  allowed_origins: [\"http://localhost:5173\"]\n", false},
		{"unknown nested key", "sso:\n  client: x\n", true},
		{"negative limit", "listing:\n  max_images: -1\n", true},
		{"origins not a list", "cors:\n  allowed_origins: http://x\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateSchema([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
