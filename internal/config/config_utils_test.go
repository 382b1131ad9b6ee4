package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigManager_GenerateTemplate(t *testing.T) {
	manager := NewConfigManager()

	basic, err := manager.GenerateTemplate("basic")
	require.NoError(t, err)
	assert.NoError(t, manager.ValidateConfig(basic))
	assert.Equal(t, 1, basic.Processing.MaxConcurrentRows)

	advanced, err := manager.GenerateTemplate("advanced")
	require.NoError(t, err)
	assert.NoError(t, manager.ValidateConfig(advanced))
	assert.Equal(t, "suffix", advanced.Merge.DuplicateNamePolicy)
	assert.Equal(t, "all", advanced.Merge.Scope)
	assert.True(t, advanced.Merge.StampProperties)

	_, err = manager.GenerateTemplate("unknown")
	assert.Error(t, err)
}

func TestConfigManager_SaveAndLoad(t *testing.T) {
	manager := NewConfigManager()

	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			config, err := manager.GenerateTemplate("advanced")
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, manager.SaveConfig(config, path))

			loaded, err := manager.LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, config, loaded)
		})
	}
}

func TestConfigManager_SaveConfig_Backup(t *testing.T) {
	manager := NewConfigManager()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	config, err := manager.GenerateTemplate("basic")
	require.NoError(t, err)
	require.NoError(t, manager.SaveConfig(config, path))
	require.NoError(t, manager.SaveConfig(config, path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var backups int
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "config_backup_") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestConfigManager_SaveConfig_Invalid(t *testing.T) {
	manager := NewConfigManager()
	path := filepath.Join(t.TempDir(), "config.json")

	assert.Error(t, manager.SaveConfig(nil, path))
	assert.Error(t, manager.SaveConfig(&Config{}, path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
