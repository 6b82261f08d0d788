package logx

import (
	"fmt"
	"log/slog"

	"github.com/lmittmann/tint"
	"github.com/shopspring/decimal"
)

var Error = tint.Err //nolint:gochecknoglobals

func Stringer(name string, value fmt.Stringer) slog.Attr {
	return slog.String(name, value.String())
}

// Money logs an amount as an exact decimal string; float attrs would round it.
func Money(name string, value decimal.Decimal) slog.Attr {
	return slog.String(name, value.String())
}
