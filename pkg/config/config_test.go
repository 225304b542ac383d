package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, geo.DefaultRadiusMeters, cfg.RadiusMeters)
	assert.IsType(t, geo.UnsupportedLocator{}, cfg.Locator())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://attendance.example.com/api
radius_meters: 100
timeout: 5s
location:
  latitude: 23.81
  longitude: 90.41
`), 0600))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TIMECLOCK_LOG_LEVEL=debug\n"), 0600))

	t.Setenv(EnvRadiusMeters, "300")
	t.Setenv(EnvDataDir, dir)

	t.Cleanup(func() { os.Unsetenv(EnvLogLevel) })
	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://attendance.example.com/api", cfg.APIURL)
	assert.Equal(t, 300.0, cfg.RadiusMeters, "environment beats file")
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)

	loc, ok := cfg.Locator().(*geo.StaticLocator)
	require.True(t, ok)
	assert.Equal(t, 23.81, loc.Point.Latitude)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	env := map[string]string{EnvRadiusMeters: "wide"}
	err := Default().ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Error(t, err)

	env = map[string]string{EnvTimeout: "soon"}
	err = Default().ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.APIURL = "ftp://x"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RadiusMeters = 0
	assert.Error(t, cfg.Validate())

	lat := 91.0
	cfg = Default()
	cfg.Location.Latitude = &lat
	assert.Error(t, cfg.Validate(), "latitude without longitude")

	lng := 10.0
	cfg.Location.Longitude = &lng
	assert.Error(t, cfg.Validate(), "latitude out of range")
}

func TestFixFileWins(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvFixFile {
			return "/tmp/fix.yaml", true
		}
		return "", false
	}))
	lat, lng := 1.0, 2.0
	cfg.Location.Latitude, cfg.Location.Longitude = &lat, &lng

	fl, ok := cfg.Locator().(*geo.FileLocator)
	require.True(t, ok)
	assert.Equal(t, "/tmp/fix.yaml", fl.Path)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.APIURL = "https://a.example/api"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/api", loaded.APIURL)
	assert.Equal(t, cfg.Timeout, loaded.Timeout)
	assert.Equal(t, cfg.Location.MaxAge, loaded.Location.MaxAge)
}
