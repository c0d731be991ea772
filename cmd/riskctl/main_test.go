package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/smart-disease-client/internal/setup"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootFlags.configFile = ""
	schemaFlags.format = "yaml"
	auditFlags.out = ""
	setupFlags = struct {
		clientConfig  string
		name          string
		binary        string
		predictionURL string
	}{name: setup.DefaultServerName}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "audit.db")
	path := filepath.Join(dir, "config.yaml")
	body := "audit:\n  enabled: true\n  driver: sqlite\n  path: " + dbPath + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, dir
}

func TestSchemaCommand_YAML(t *testing.T) {
	out, err := execute(t, "schema", "diabetes")
	require.NoError(t, err)

	var docs []variantDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "diabetes", string(docs[0].Variant))
	assert.Len(t, docs[0].Fields, 6)
}

func TestSchemaCommand_JSONAll(t *testing.T) {
	out, err := execute(t, "schema", "--format", "json")
	require.NoError(t, err)

	var docs []variantDoc
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 3)
	assert.Equal(t, "stroke", string(docs[2].Variant))
}

func TestSchemaCommand_Errors(t *testing.T) {
	_, err := execute(t, "schema", "asthma")
	assert.ErrorContains(t, err, "unknown disease variant")

	_, err = execute(t, "schema", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestAuditCommands(t *testing.T) {
	cfgPath, dir := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "audit", "count")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 0")

	exportPath := filepath.Join(dir, "export.json")
	_, err = execute(t, "--config", cfgPath, "audit", "export", "--out", exportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var export map[string]any
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, float64(0), export["count"])
}

func TestSetupMCPClientCommand(t *testing.T) {
	clientConfig := filepath.Join(t.TempDir(), "client.json")

	out, err := execute(t, "setup", "mcp-client", "--client-config", clientConfig, "--binary", "/usr/local/bin/riskctl")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered")

	out, err = execute(t, "setup", "mcp-client", "--client-config", clientConfig, "--binary", "/usr/local/bin/riskctl")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated")
}
