package config

import "time"

type Auth struct {
	Secret         string        `env:"AUTH_SECRET,required" json:"-"`
	TokenTTL       time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
	InitDataMaxAge time.Duration `env:"AUTH_INIT_DATA_MAX_AGE" envDefault:"24h"`
}
