package config

type Bot struct {
	Token  string  `env:"BOT_TOKEN,required" json:"-"`
	Name   string  `env:"BOT_NAME,required"`
	Admins []int64 `env:"BOT_ADMINS" envSeparator:","`
	Owners []int64 `env:"BOT_OWNERS" envSeparator:","`
	// Чат и топик, куда падают уведомления о пополнениях и выводах.
	DepositChatID   int64 `env:"BOT_DEPOSIT_CHAT_ID"`
	DepositThreadID int   `env:"BOT_DEPOSIT_THREAD_ID"`
}
