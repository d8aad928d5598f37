package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"punish-bot/model"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads the configuration from the environment (.env first) and the punish config file.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	cfg := &model.Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := LoadPunishConfig(cfg.PunishConfigPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type punishFile struct {
	Servers  []model.ServerConfig `mapstructure:"servers"`
	Messages map[string]string    `mapstructure:"messages"`
}

// LoadPunishConfig reads guild settings and message overrides from path into cfg.
// A missing file leaves both empty.
func LoadPunishConfig(path string, cfg *model.Config) error {
	cfg.ServerConfigs = make(map[string]model.ServerConfig)
	cfg.Messages = make(map[string]string)

	// Message keys contain dots, so they must not be split into nested keys.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: Config file not found at %s, skipping.", path)
			return nil
		}
		return fmt.Errorf("failed to read punish config %s: %w", path, err)
	}

	var file punishFile
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("failed to decode punish config %s: %w", path, err)
	}
	for _, server := range file.Servers {
		if server.GuildID == "" {
			log.Printf("Warning: server %q in %s has no guild_id, skipping.", server.Name, path)
			continue
		}
		cfg.ServerConfigs[server.GuildID] = server
	}
	for key, text := range file.Messages {
		cfg.Messages[key] = text
	}
	return nil
}
