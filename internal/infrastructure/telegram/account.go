package telegram

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Account — пользовательский аккаунт, на котором хранятся подарки площадки.
type Account struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var accounts []Account
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	return accounts, nil
}
