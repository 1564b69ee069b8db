package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// setupTestDir moves the test into an empty directory holding agentdb.conf
// when config is not empty
func setupTestDir(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "agentdb.conf"), []byte(config), 0o644))
	}
	return dir
}

func sqliteConfig(dir string) string {
	return "[datasource]\nprovider = \"sqlite\"\nurl = \"file:" + filepath.Join(dir, "agents.db") + "\"\n"
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agentdb ")
	assert.Contains(t, out, "Go version:")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	setupTestDir(t, sqliteConfig(dir))

	out, err := run(t, "", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Datasource provider: sqlite")
	assert.Contains(t, out, "is valid (12 models)")
}

func TestValidate_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"missing datasource", "log = [\"info\"]\n"},
		{"unknown provider", "[datasource]\nprovider = \"oracle\"\nurl = \"oracle://db\"\n"},
		{"unknown log level", "log = [\"debug\"]\n[datasource]\nurl = \"file:x.db\"\n"},
		{"bad pool", "[datasource]\nurl = \"file:x.db\"\n[pool]\nmax_conns = 2\nmin_conns = 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestDir(t, tt.config)
			_, err := run(t, "", "validate")
			assert.Error(t, err)
		})
	}
}

func TestValidate_NoConfig(t *testing.T) {
	setupTestDir(t, "")
	_, err := run(t, "", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agentdb.conf not found")
}

func TestSchema(t *testing.T) {
	setupTestDir(t, "")

	out, err := run(t, "", "schema", "--provider", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "agents" (`)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "agent_languages" (`)

	out, err = run(t, "", "schema", "-p", "mysql")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS `agents` (")

	_, err = run(t, "", "schema", "--provider", "oracle")
	assert.ErrorContains(t, err, `unsupported provider "oracle"`)
}

func TestSchema_ProviderFromConfig(t *testing.T) {
	setupTestDir(t, "[datasource]\nurl = \"postgresql://localhost/agents\"\n")

	out, err := run(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"id" SERIAL PRIMARY KEY`)
}

func TestDBExecute_NoSQL(t *testing.T) {
	dir := t.TempDir()
	setupTestDir(t, sqliteConfig(dir))

	_, err := run(t, "  ;\n-- nothing here\n", "db", "execute", "--stdin")
	assert.ErrorContains(t, err, "no SQL provided")

	_, err = run(t, "", "db", "execute", "--file", "missing.sql")
	assert.ErrorContains(t, err, "error reading file")
}
