package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(1280), cfg.Window.Width)
	assert.Equal(t, uint32(720), cfg.Window.Height)
	assert.Equal(t, MaxFramesInFlight, cfg.Renderer.MaxFramesInFlight)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
title = "test"
width = 800
height = 600

[renderer]
vsync = true

[editor]
enabled = false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.True(t, cfg.Renderer.VSync)
	assert.False(t, cfg.Editor.Enabled)
	// untouched sections keep their defaults
	assert.Equal(t, float32(45), cfg.Camera.FOV)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
assets:
  root: /tmp/assets
  model: scene.gltf
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/assets", cfg.Assets.Root)
	assert.Equal(t, filepath.Join("/tmp/assets", "scene.gltf"), cfg.AssetPath(cfg.Assets.Model))
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"frames.toml":  "[renderer]\nmax_frames_in_flight = 3\n",
		"size.toml":    "[window]\nwidth = 0\n",
		"clip.toml":    "[camera]\nnear = 10.0\nfar = 1.0\n",
		"unknown.toml": "[window]\ncolour = \"red\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	cfg := Default()
	cfg.Renderer.VSync = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Renderer.VSync)
}
