package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NANDFS_CONFIG_DIR", dir)

	assert.Equal(t, dir, ConfigDir())
	assert.Equal(t, filepath.Join(dir, "settings.yaml"), SettingsPath())
}

func TestInitConfigDirWritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")
	t.Setenv("NANDFS_CONFIG_DIR", dir)

	require.NoError(t, InitConfigDir())

	data, err := os.ReadFile(SettingsPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "image:")

	// A second init must not clobber an existing settings file.
	require.NoError(t, os.WriteFile(SettingsPath(), []byte("image: custom.img\n"), 0600))
	require.NoError(t, InitConfigDir())

	data, err = os.ReadFile(SettingsPath())
	require.NoError(t, err)
	assert.Equal(t, "image: custom.img\n", string(data))
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("NANDFS_CONFIG_DIR", t.TempDir())

	// No settings file: embedded defaults apply.
	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "nand.img", settings.Image)
	assert.Equal(t, "off", settings.LogLevel)
	assert.Equal(t, 0, settings.CLIBusyTimeout)
}

func TestLoadSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NANDFS_CONFIG_DIR", dir)

	content := "image: other.img\nlog_level: debug\ncli_busy_timeout: 500\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0600))

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "other.img", settings.Image)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.Equal(t, 500, settings.CLIBusyTimeout)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	t.Setenv("NANDFS_CONFIG_DIR", t.TempDir())

	in := &Settings{Image: "saved.img", LogLevel: "warn", CLIBusyTimeout: 250}
	require.NoError(t, SaveSettings(in))

	out, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestImagePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NANDFS_CONFIG_DIR", dir)

	relative := &Settings{Image: "nand.img"}
	assert.Equal(t, filepath.Join(dir, "nand.img"), relative.ImagePath())

	absolute := &Settings{Image: "/var/lib/nandfs/nand.img"}
	assert.Equal(t, "/var/lib/nandfs/nand.img", absolute.ImagePath())
}
