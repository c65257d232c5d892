package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smokectl/internal/components"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// withConfigDirs points user and project lookups into tempDir.
func withConfigDirs(t *testing.T, tempDir string) (userDir, projectDir string) {
	t.Helper()
	originalHome, originalWd := osUserHomeDir, osGetwd
	t.Cleanup(func() {
		osUserHomeDir = originalHome
		osGetwd = originalWd
	})
	home := filepath.Join(tempDir, "home")
	wd := filepath.Join(tempDir, "work")
	osUserHomeDir = func() (string, error) { return home, nil }
	osGetwd = func() (string, error) { return wd, nil }
	return filepath.Join(home, userConfigDir), filepath.Join(wd, projectConfigDir)
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	withConfigDirs(t, t.TempDir())

	loaded, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), loaded)
	assert.Equal(t, 120*time.Second, loaded.Timeout.Std())
	assert.Equal(t, 5*time.Second, loaded.Interval.Std())
	assert.Equal(t, 2*time.Second, loaded.GracePeriod.Std())
	assert.False(t, loaded.WaitsForReady())
	assert.Equal(t, ForwarderKubectl, loaded.Forwarder)
	assert.Equal(t, DiscoveryClientGo, loaded.Discovery)
}

func TestLoadConfig_UserOverride(t *testing.T) {
	userDir, _ := withConfigDirs(t, t.TempDir())
	createTempConfigFile(t, userDir, `
timeout: 60
interval: 500ms
forwarder: client-go
components:
  minio:
    fallbackService: minio-hl
    fallbackPort: 9000
`)

	loaded, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, loaded.Timeout.Std())
	assert.Equal(t, 500*time.Millisecond, loaded.Interval.Std())
	assert.Equal(t, 2*time.Second, loaded.GracePeriod.Std(), "untouched fields keep defaults")
	assert.Equal(t, ForwarderClientGo, loaded.Forwarder)
	assert.Equal(t, "minio-hl", loaded.Components["minio"].FallbackService)
}

func TestLoadConfig_ProjectOverridesUser(t *testing.T) {
	userDir, projectDir := withConfigDirs(t, t.TempDir())
	createTempConfigFile(t, userDir, `
timeout: 60
components:
  minio:
    fallbackService: minio-hl
    healthPath: /minio/health/ready
`)
	createTempConfigFile(t, projectDir, `
timeout: 30s
waitReady: true
components:
  minio:
    fallbackService: minio-project
`)

	loaded, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, loaded.Timeout.Std())
	assert.True(t, loaded.WaitsForReady())
	minio := loaded.Components["minio"]
	assert.Equal(t, "minio-project", minio.FallbackService)
	assert.Equal(t, "/minio/health/ready", minio.HealthPath, "fields merge per component")
}

func TestLoadConfig_ExplicitFileWins(t *testing.T) {
	tempDir := t.TempDir()
	_, projectDir := withConfigDirs(t, tempDir)
	createTempConfigFile(t, projectDir, "discovery: kubectl\ntimeout: 30\n")
	explicit := createTempConfigFile(t, filepath.Join(tempDir, "explicit"), "timeout: 10\n")

	loaded, err := LoadConfig(explicit)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, loaded.Timeout.Std())
	assert.Equal(t, DiscoveryKubectl, loaded.Discovery)
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	tempDir := t.TempDir()
	withConfigDirs(t, tempDir)

	_, err := LoadConfig(filepath.Join(tempDir, "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	_, projectDir := withConfigDirs(t, t.TempDir())
	createTempConfigFile(t, projectDir, "")

	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	userDir, _ := withConfigDirs(t, t.TempDir())
	createTempConfigFile(t, userDir, "timeout: [1, 2\n")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "error loading user config")
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, projectDir := withConfigDirs(t, t.TempDir())
	createTempConfigFile(t, projectDir, "timout: 10\n")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "timout")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	_, projectDir := withConfigDirs(t, t.TempDir())
	createTempConfigFile(t, projectDir, "interval: soon\n")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "soon")
}

func TestLoadConfig_HomeDirUnavailable(t *testing.T) {
	withConfigDirs(t, t.TempDir())
	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }

	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	bad := "app in (nfs"
	port := 70000
	c := DefaultConfig()
	c.Timeout = 0
	c.Interval = Duration(-time.Second)
	c.Forwarder = "ssh"
	c.Components = map[string]ComponentOverride{
		"redis": {},
		"nfs":   {LabelSelector: &bad, PreferredPort: &port},
		"minio": {FallbackPort: -1, HealthPath: "minio/health/live"},
	}

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, components.ErrUnknownKind)

	msg := err.Error()
	for _, want := range []string{
		"timeout must be positive",
		"interval must be positive",
		`forwarder must be "kubectl" or "client-go", got "ssh"`,
		"components.nfs.labelSelector",
		"components.nfs.preferredPort: 70000 out of range",
		"components.minio.fallbackPort: -1 out of range",
		`components.minio.healthPath: "minio/health/live" must start with /`,
		`unknown component "redis"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestSpecs_AppliesOverrides(t *testing.T) {
	none := ""
	preferred := 9000
	c := DefaultConfig()
	c.Components = map[string]ComponentOverride{
		"minio": {
			LabelSelector:   &none,
			PreferredPort:   &preferred,
			FallbackService: "minio-hl",
			FallbackPort:    9000,
			HealthPath:      "/minio/health/ready",
		},
	}

	specs := c.Specs([]components.Kind{components.Postgres, components.MinIO})
	require.Len(t, specs, 2)
	assert.Equal(t, components.Postgres.Spec(), specs[0])

	minio := specs[1]
	assert.False(t, minio.Discovers())
	assert.Equal(t, 9000, minio.PreferredPort)
	assert.Equal(t, "minio-hl", minio.Fallback.ServiceName)
	assert.Equal(t, 9000, minio.Fallback.Port)
	assert.Equal(t, "/minio/health/ready", minio.HealthPath)
	assert.Equal(t, components.MinIO.Spec().Probe, minio.Probe)
}
