package ton

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

// ParseAddress принимает как user-friendly (EQ.../UQ...), так и raw (0:hex) форму.
func ParseAddress(s string) (*address.Address, error) {
	s = strings.TrimSpace(s)

	if strings.Contains(s, ":") {
		addr, err := address.ParseRawAddr(s)
		if err != nil {
			return nil, fmt.Errorf("parse raw address: %w", err)
		}
		return addr, nil
	}

	addr, err := address.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}

	return addr, nil
}

// RawAddress — форма workchain:hex, в которой адреса отдаёт tonapi.
func RawAddress(a *address.Address) string {
	return fmt.Sprintf("%d:%x", a.Workchain(), a.Data())
}

func SameAddress(a, b *address.Address) bool {
	return a.Workchain() == b.Workchain() && bytes.Equal(a.Data(), b.Data())
}

// AddressValidator проверяет адреса кошельков для вывода.
type AddressValidator struct{}

func (AddressValidator) ValidateAddress(addr string) error {
	_, err := ParseAddress(addr)
	return err
}
