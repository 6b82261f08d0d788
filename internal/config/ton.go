package config

import "strings"

const mnemonicWords = 24

type TON struct {
	APIURL         string `env:"TON_API_URL" envDefault:"https://tonapi.io"`
	APIToken       string `env:"TON_API_TOKEN" json:"-"`
	DepositAddress string `env:"TON_DEPOSIT_ADDRESS,required"`
	Mnemonic       string `env:"TON_MNEMONIC" json:"-"`
	Testnet        bool   `env:"TON_TESTNET"`
	LogTraffic     bool   `env:"TON_LOG_TRAFFIC"`
}

func (t TON) MnemonicWords() []string {
	return strings.Fields(correctNewlines(t.Mnemonic))
}
