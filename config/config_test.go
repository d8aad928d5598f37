package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"punish-bot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `servers:
  - name: Main
    guild_id: "111"
    enable: true
    admin_role_ids: ["900", "901"]
    announce_channel_id: "222"
    staff_channel_id: "333"
  - name: Broken
    enable: true
messages:
  broadcast.ban.reasoned: "{target} is gone: {reason}"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "punish_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPunishConfig(t *testing.T) {
	cfg := &model.Config{}
	require.NoError(t, LoadPunishConfig(writeFile(t, sample), cfg))

	require.Len(t, cfg.ServerConfigs, 1)
	server, ok := cfg.Server("111")
	require.True(t, ok)
	assert.Equal(t, "Main", server.Name)
	assert.Equal(t, []string{"900", "901"}, server.AdminRoleIDs)
	assert.Equal(t, "222", server.AnnounceChannelID)
	assert.Equal(t, "333", server.StaffChannelID)

	assert.Equal(t, "{target} is gone: {reason}", cfg.Messages["broadcast.ban.reasoned"])
}

func TestLoadPunishConfigMissingFile(t *testing.T) {
	cfg := &model.Config{}
	require.NoError(t, LoadPunishConfig(filepath.Join(t.TempDir(), "missing.yaml"), cfg))
	assert.Empty(t, cfg.ServerConfigs)
	assert.Empty(t, cfg.Messages)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("PUNISH_CONFIG_PATH", writeFile(t, sample))
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("DEVELOPER_USER_IDS", "1,2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.BotToken)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "data/punishments.db", cfg.DatabasePath)
	assert.Equal(t, []string{"1", "2"}, cfg.DeveloperUserIDs)
	assert.Len(t, cfg.ServerConfigs, 1)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOT_TOKEN", "")
	os.Unsetenv("BOT_TOKEN")

	_, err := Load()
	assert.ErrorContains(t, err, "BOT_TOKEN")
}
