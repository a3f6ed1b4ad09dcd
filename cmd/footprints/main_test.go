package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"footprints/pkg/config"
	"footprints/pkg/logging"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(*testing.T, *cliOptions)
	}{
		{
			name: "Defaults",
			args: []string{"--input", "in.geojson", "--output", "out.geojsonl"},
			check: func(t *testing.T, o *cliOptions) {
				assert.Equal(t, 2026, o.currentYear)
				assert.Equal(t, 0.00001, o.tolerance)
				assert.Equal(t, defaultConfigPath, o.configPath)
				assert.False(t, o.set["simplify"])
			},
		},
		{
			name: "Overrides",
			args: []string{"--input", "in.shp", "--output", "out.geojsonl", "--current-year", "2020", "--simplify", "0"},
			check: func(t *testing.T, o *cliOptions) {
				assert.Equal(t, 2020, o.currentYear)
				assert.Zero(t, o.tolerance)
				assert.True(t, o.set["simplify"])
				assert.True(t, o.set["current-year"])
			},
		},
		{
			name:    "MissingOutput",
			args:    []string{"--input", "in.geojson"},
			wantErr: true,
		},
		{
			name: "InitConfigNeedsNoPaths",
			args: []string{"--init-config", "footprints.yaml"},
			check: func(t *testing.T, o *cliOptions) {
				assert.Equal(t, "footprints.yaml", o.initConfig)
			},
		},
		{
			name:    "BadYear",
			args:    []string{"--input", "a", "--output", "b", "--current-year", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestApply(t *testing.T) {
	opts, err := parseFlags([]string{"--input", "a", "--output", "b", "--simplify", "-1", "--layer", "footprints"}, io.Discard)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Years.CurrentYear = 2015
	opts.apply(cfg)

	assert.Equal(t, -1.0, cfg.Simplify.Tolerance)
	assert.Equal(t, "footprints", cfg.Input.Layer)
	assert.Equal(t, 2015, cfg.Years.CurrentYear, "unset flag must not override config")
}

func TestRun(t *testing.T) {
	prevConsole, prevLogger := logging.Console, slog.Default()
	logging.Console = io.Discard
	t.Cleanup(func() {
		logging.Console = prevConsole
		slog.SetDefault(prevLogger)
	})

	dir := t.TempDir()
	in := filepath.Join(dir, "buildings.geojson")
	out := filepath.Join(dir, "out", "buildings.geojsonl")
	require.NoError(t, os.WriteFile(in, []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"BLDG_ID":"A1","YEAR_BUILT":1965},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[0.001,0],[0.001,0.001],[0,0.001],[0,0]]]}},
		{"type":"Feature","properties":{"BLDG_ID":"A2","YEAR_BUILT":"n/a"},"geometry":null}
	]}`), 0o644))

	opts, err := parseFlags([]string{
		"--input", in,
		"--output", out,
		"--config", filepath.Join(dir, "missing.yaml"),
	}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(opts, &stdout))
	assert.Equal(t, "Exported 2 buildings to "+out+"\n", stdout.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "1960-1979", gjson.GetBytes(lines[0], "properties.age_bucket").String())
	assert.Equal(t, "unknown", gjson.GetBytes(lines[1], "properties.age_bucket").String())
}

func TestRun_Failure(t *testing.T) {
	prevConsole, prevLogger := logging.Console, slog.Default()
	logging.Console = io.Discard
	t.Cleanup(func() {
		logging.Console = prevConsole
		slog.SetDefault(prevLogger)
	})

	dir := t.TempDir()
	opts, err := parseFlags([]string{
		"--input", filepath.Join(dir, "nope.geojson"),
		"--output", filepath.Join(dir, "out.geojsonl"),
		"--config", filepath.Join(dir, "missing.yaml"),
	}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	assert.Error(t, run(opts, &stdout))
	assert.Empty(t, stdout.String())
}
