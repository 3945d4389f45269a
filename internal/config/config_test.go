package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codalotl/turnsieve/internal/scorer"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	file, ok, err := Load(dir)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, File{}, file)
}

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "method: setcover\nbudget: 50000\nembed_url: http://localhost:8080\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigName), []byte(content), 0o644))

	file, ok, err := Load(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "setcover", file.Method)
	require.Equal(t, 50000, file.Budget)
	require.Equal(t, "http://localhost:8080", file.EmbedURL)
}

func TestLoad_InvalidYAMLIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigName), []byte("budget: [unterminated"), 0o644))

	_, ok, err := Load(dir)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResolve_FileOverridesDefaults(t *testing.T) {
	file := File{Budget: 50000, Device: "cuda"}
	opts := Resolve(file, func(string) string { return "" })

	require.Equal(t, 50000, opts.Budget)
	require.Equal(t, "cuda", opts.Device)
	require.Equal(t, scorer.DefaultOptions().ShortThreshold, opts.ShortThreshold, "unset fields keep the default")
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	file := File{Budget: 50000}
	env := map[string]string{"TURNSIEVE_BUDGET": "99999"}
	opts := Resolve(file, func(k string) string { return env[k] })

	require.Equal(t, 99999, opts.Budget)
}

func TestSplitRatio_Precedence(t *testing.T) {
	require.InDelta(t, 0.70, SplitRatio(File{}, func(string) string { return "" }), 1e-9)
	require.InDelta(t, 0.80, SplitRatio(File{SplitRatio: 0.80}, func(string) string { return "" }), 1e-9)

	env := map[string]string{"TURNSIEVE_SPLIT_RATIO": "0.9"}
	require.InDelta(t, 0.9, SplitRatio(File{SplitRatio: 0.80}, func(k string) string { return env[k] }), 1e-9)
}
