package value

import "fmt"

type GiveawayType string

const (
	GiveawayFree GiveawayType = "free"
	GiveawayPaid GiveawayType = "paid"
)

func ParseGiveawayType(s string) (GiveawayType, error) {
	switch t := GiveawayType(s); t {
	case GiveawayFree, GiveawayPaid:
		return t, nil
	default:
		return "", fmt.Errorf("unknown giveaway type %q", s)
	}
}
