package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config using the offline embedder and a badger index so
// state survives between command invocations.
func setup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	dir := filepath.Join(root, "data", "sec_filings", "10-K", "AAPL")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_20240101.txt"),
		[]byte("iPhone net sales increased on strong demand in emerging markets."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_20231001.txt"),
		[]byte("Services revenue reached an all time record."), 0644))

	cfg := fmt.Sprintf(`
logging:
  level: error
llm:
  disabled: true
embedder:
  type: hash
  dimension: 128
store:
  type: badger
  path: %s
loader:
  data_dir: %s
processor:
  chunking: false
`, filepath.Join(root, "index"), filepath.Join(root, "data"))

	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// runStdout executes without SetOut, so output goes wherever cobra sends it by
// default. It returns what reached the process stdout and stderr.
func runStdout(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	capture := func(target **os.File) func() string {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		orig := *target
		*target = w
		done := make(chan string)
		go func() {
			data, _ := io.ReadAll(r)
			done <- string(data)
		}()
		return func() string {
			*target = orig
			w.Close()
			return <-done
		}
	}

	stopOut := capture(&os.Stdout)
	stopErr := capture(&os.Stderr)

	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.Execute()

	return stopOut(), stopErr(), err
}

func TestLoadCommand(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, "--config", cfg, "load", "sec", "AAPL", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-01")
	assert.Contains(t, out, "iPhone net sales")
	assert.NotContains(t, out, "Services revenue")

	out, err = run(t, "--config", cfg, "load", "sec", "MSFT")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")

	_, err = run(t, "--config", cfg, "load", "bogus", "AAPL")
	assert.ErrorContains(t, err, "unknown loader type")
}

func TestIngestThenSearch(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, "--config", cfg, "ingest", "sec", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 chunks from 2 documents (0 already present)")

	out, err = run(t, "--config", cfg, "ingest", "sec", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 0 chunks from 2 documents (2 already present)")

	out, err = run(t, "--config", cfg, "search", "services revenue record", "--min-score", "0.2", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Services revenue reached an all time record.")
	assert.Contains(t, out, "Source: SEC")
}

func TestJSONOutputGoesToStdout(t *testing.T) {
	cfg := setup(t)

	stdout, stderr, err := runStdout(t, "--config", cfg, "load", "sec", "AAPL", "--json")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "iPhone net sales")

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0]["symbol"])

	_, _, err = runStdout(t, "--config", cfg, "ingest", "sec", "AAPL")
	require.NoError(t, err)

	stdout, stderr, err = runStdout(t, "--config", cfg, "search", "services revenue record", "--min-score", "0.2", "--json")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Services revenue")

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.NotEmpty(t, results)
}

func TestAskRequiresChat(t *testing.T) {
	cfg := setup(t)

	_, err := run(t, "--config", cfg, "ask", "How did services do?")
	assert.ErrorContains(t, err, "chat engine is disabled")
}

func TestCommandArgs(t *testing.T) {
	_, err := run(t, "search")
	assert.Error(t, err)

	_, err = run(t, "load", "sec")
	assert.Error(t, err)
}
