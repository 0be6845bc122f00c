package config

import (
	"context"
	"errors"
)

type TelegramConfig struct {
	Token string `env:"TELEGRAM_TOKEN" secret:"true"`
	// OwnerID restricts the bot to one user. Zero lets anyone talk to it.
	OwnerID int64 `env:"TELEGRAM_OWNER_ID" envDefault:"0"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	return mustParse[TelegramConfig](ctx, "Telegram")
}

func (c TelegramConfig) Validate() error {
	if c.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required when ENABLE_TELEGRAM is set")
	}
	return nil
}
