package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       App
	HTTP      HTTP
	Auth      Auth
	Postgres  Postgres
	Redis     Redis
	Bot       Bot
	Telegram  Telegram
	TON       TON
	Market    Market
	Scheduler Scheduler
}

type App struct {
	Name      string `env:"APP_NAME" envDefault:"gift-market"`
	Version   string `env:"APP_VERSION" envDefault:"dev"`
	Debug     bool   `env:"APP_DEBUG"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load читает .env (если есть) и переменные окружения.
func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config.Validate: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	var errs []error

	if err := c.Market.PriceList().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("price list: %w", err))
	}

	if c.TON.Mnemonic != "" && len(c.TON.MnemonicWords()) != mnemonicWords {
		errs = append(errs, fmt.Errorf("ton mnemonic must have %d words", mnemonicWords))
	}

	if len(c.Bot.Admins) == 0 {
		errs = append(errs, errors.New("at least one admin is required"))
	}

	return errors.Join(errs...)
}

// correctNewlines убирает кавычки и раскрывает \n, которые оставляют
// некоторые менеджеры секретов.
func correctNewlines(s string) string {
	return strings.NewReplacer(`"`, "", `\n`, "\n").Replace(s)
}
