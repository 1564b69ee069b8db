//go:build sqlite

package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_PushStatusExecute(t *testing.T) {
	dir := t.TempDir()
	setupTestDir(t, sqliteConfig(dir))

	out, err := run(t, "", "db", "status")
	require.Error(t, err)
	assert.Contains(t, out, "[+] Missing table `agents`")

	out, err = run(t, "", "db", "push")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema applied")

	out, err = run(t, "", "db", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "in sync")

	out, err = run(t, "", "db", "push")
	require.NoError(t, err, out)

	script := `INSERT INTO agents (name, slug) VALUES ('Ava', 'ava');
INSERT INTO agents (name, slug) VALUES ('Bo', 'bo; the second');
UPDATE agents SET category = 'support';`
	require.NoError(t, os.WriteFile("seed.sql", []byte(script), 0o644))

	out, err = run(t, "", "db", "execute", "--file", "seed.sql")
	require.NoError(t, err)
	assert.Contains(t, out, "2 row(s) affected")
	assert.Contains(t, out, "SQL executed successfully!")

	out, err = run(t, "DELETE FROM agents WHERE slug = 'ava'", "db", "execute", "--stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "1 row(s) affected")
}

func TestDB_Health(t *testing.T) {
	dir := t.TempDir()
	setupTestDir(t, sqliteConfig(dir))

	out, err := run(t, "", "db", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: healthy")
	assert.Contains(t, out, "Database: main")
}
