package handler

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/service/account"
)

var errUsage = errors.New("usage")

// commandArgs возвращает ровно n аргументов команды.
func commandArgs(text string, n int) ([]string, error) {
	fields := strings.Fields(text)
	if len(fields) != n+1 {
		return nil, errUsage
	}
	return fields[1:], nil
}

// commandText возвращает текст после команды с сохранением переносов строк.
func commandText(text string) (string, error) {
	text = strings.TrimSpace(text)

	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return "", errUsage
	}

	rest := strings.TrimSpace(text[i:])
	if rest == "" {
		return "", errUsage
	}
	return rest, nil
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, errUsage
	}
	return amount, nil
}

func renderUser(p account.Profile) string {
	var sb strings.Builder

	status := "активен"
	if p.User.IsBanned {
		status = "заблокирован"
	}

	fmt.Fprintf(&sb, "👤 <b>Пользователь</b> <code>%d</code>\n\n", p.User.ID)
	if p.User.Username != "" {
		fmt.Fprintf(&sb, "Username: @%s\n", html.EscapeString(p.User.Username))
	}
	fmt.Fprintf(&sb, "Имя: %s\n", html.EscapeString(p.User.FirstName))
	fmt.Fprintf(&sb, "💰 Баланс: %s TON\n", p.User.Balance.String())
	fmt.Fprintf(&sb, "🤝 Реферальный доход: %s TON\n", p.User.Commission.String())
	fmt.Fprintf(&sb, "👥 Рефералов: %d\n", p.CountReferrals)
	fmt.Fprintf(&sb, "Комментарий депозита: <code>%s</code>\n", html.EscapeString(p.User.DepositComment))
	fmt.Fprintf(&sb, "Статус: %s\n", status)
	fmt.Fprintf(&sb, "Зарегистрирован: %s", p.User.CreatedAt.Format("2006-01-02 15:04"))

	return sb.String()
}
