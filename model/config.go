package model

import "time"

// ServerConfig holds the per-guild punishment settings.
type ServerConfig struct {
	Name              string   `mapstructure:"name"`
	GuildID           string   `mapstructure:"guild_id"`
	Enable            bool     `mapstructure:"enable"`
	AdminRoleIDs      []string `mapstructure:"admin_role_ids"`
	AnnounceChannelID string   `mapstructure:"announce_channel_id"`
	StaffChannelID    string   `mapstructure:"staff_channel_id"`
}

// Config 存储应用程序的配置
type Config struct {
	BotToken          string        `env:"BOT_TOKEN,required"`
	LogWebhookURL     string        `env:"LOG_WEBHOOK_URL"`
	DatabasePath      string        `env:"PUNISH_DB_PATH" envDefault:"data/punishments.db"`
	PunishConfigPath  string        `env:"PUNISH_CONFIG_PATH" envDefault:"data/punish_config.yaml"`
	APIAddr           string        `env:"API_ADDR" envDefault:":8089"`
	Workers           int           `env:"WORKER_COUNT" envDefault:"8"`
	QueueSize         int           `env:"WORKER_QUEUE_SIZE" envDefault:"256"`
	MaxDBConns        int           `env:"DB_MAX_CONNS" envDefault:"4"`
	StoreTimeout      time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ResolveTimeout    time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"3s"`
	SweepInterval     time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"5m"`
	DeveloperUserIDs  []string      `env:"DEVELOPER_USER_IDS" envSeparator:","`
	DisableCommandSet bool          `env:"DISABLE_COMMAND_REGISTER"`

	// Loaded from the punish config file.
	ServerConfigs map[string]ServerConfig
	Messages      map[string]string
}

// Server returns the config for guildID if the guild is enabled.
func (c *Config) Server(guildID string) (ServerConfig, bool) {
	sc, ok := c.ServerConfigs[guildID]
	if !ok || !sc.Enable {
		return ServerConfig{}, false
	}
	return sc, true
}
