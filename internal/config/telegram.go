package config

type Telegram struct {
	APIID        int    `env:"TG_API_ID,required"`
	APIHash      string `env:"TG_API_HASH,required" json:"-"`
	AccountsFile string `env:"TG_ACCOUNTS_FILE" envDefault:"accounts.json"`
	SessionDir   string `env:"TG_SESSION_DIR" envDefault:"storage/sessions"`
	Debug        bool   `env:"TG_DEBUG"`
}
