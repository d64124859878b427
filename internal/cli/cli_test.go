package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ticksched.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckPrintsSummary(t *testing.T) {
	path := writeConfig(t, `
scheduler: { interval: "@every 5s", validator: retry_on_failure }
journal: { driver: file, path: ./j.jsonl }
tasks:
  - { name: beat, kind: log, priority: high }
  - { name: nap, kind: sleep, duration: 1s, priority: 7 }
`)
	out, err := execute(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "interval:  5s")
	assert.Contains(t, out, "validator: retry_on_failure")
	assert.Contains(t, out, "journal:   file")
	assert.Contains(t, out, "status:    disabled")
	assert.Contains(t, out, "beat")
	assert.Contains(t, out, "high")
	assert.Contains(t, out, "7")
}

func TestCheckRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "scheduler: { interval: 1s }\ntasks: [ { name: a, kind: nope } ]\n")
	_, err := execute(t, "check", "-c", path)
	assert.ErrorContains(t, err, "unknown job kind")

	_, err = execute(t, "check", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config")
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("TICKSCHED_CONFIG", "/etc/ticksched/custom.yaml")
	cmd := NewRootCmd()
	f := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "/etc/ticksched/custom.yaml", f.DefValue)
}

func TestRunRejectsArgs(t *testing.T) {
	_, err := execute(t, "run", "extra")
	assert.Error(t, err)
}
