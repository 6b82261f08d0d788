package rarity

import (
	"strconv"
	"strings"

	"gift_market/internal/domain/entity"
)

//nolint:gochecknoglobals
var memeNumbers = map[int]struct{}{
	52: {}, 67: {}, 69: {}, 228: {}, 420: {}, 666: {}, 777: {}, 1337: {},
}

type numberRule struct {
	description string
	score       func(n int, s string) (float64, bool)
}

// Правила проверяются по порядку, побеждает первое сработавшее.
//
//nolint:gochecknoglobals
var numberRules = []numberRule{
	{"Single Digit", fixed(100, func(n int, _ string) bool { return n > 0 && n < 10 })},
	{"Solid", fixed(100, func(_ int, s string) bool { return isSolid(s) })},
	{"Meme", fixed(100, func(n int, _ string) bool { _, ok := memeNumbers[n]; return ok })},
	{"Double Digit", fixed(90, func(n int, _ string) bool { return n < 100 })},
	{"Ladder", fixed(85, func(_ int, s string) bool { return isLadder(s) })},
	{"Round", roundScore},
	{"Triple Digit", fixed(75, func(n int, _ string) bool { return n < 1000 })},
	{"Repeater", fixed(70, func(_ int, s string) bool { return isRepeater(s) })},
	{"Palindrome", fixed(65, func(_ int, s string) bool { return isPalindrome(s) })},
	{"Lucky Suffix", fixed(25, func(_ int, s string) bool { return len(s) >= 5 && isSolid(s[len(s)-3:]) })},
}

// NumberScore оценивает серийный номер: однозначные, «сплошные», лесенки,
// круглые и зеркальные номера ценятся выше случайных.
func NumberScore(number int) entity.Rating {
	if number <= 0 {
		return entity.Rating{Description: "Random"}
	}

	s := strconv.Itoa(number)

	for _, rule := range numberRules {
		if score, ok := rule.score(number, s); ok {
			return entity.Rating{Score: score, Description: rule.description, IsUnique: true}
		}
	}

	return entity.Rating{Description: "Random"}
}

func fixed(score float64, match func(n int, s string) bool) func(int, string) (float64, bool) {
	return func(n int, s string) (float64, bool) {
		return score, match(n, s)
	}
}

// roundScore: 1000, 500000, 7000 — 50% плюс 10% за каждый ноль, максимум 95%.
func roundScore(_ int, s string) (float64, bool) {
	if !strings.HasSuffix(s, "000") {
		return 0, false
	}

	zeros := len(s) - len(strings.TrimRight(s, "0"))
	if !isSolid(s[:len(s)-zeros]) {
		return 0, false
	}

	return min(50+float64(zeros)*10, 95), true
}

func isSolid(s string) bool {
	if s == "" {
		return false
	}
	return strings.Count(s, s[:1]) == len(s)
}

func isLadder(s string) bool {
	if len(s) < 3 {
		return false
	}

	up, down := true, true
	for i := 1; i < len(s); i++ {
		d := int(s[i]) - int(s[i-1])
		up = up && d == 1
		down = down && d == -1
	}
	return up || down
}

func isPalindrome(s string) bool {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		if s[i] != s[j] {
			return false
		}
	}
	return true
}

// isRepeater: XYXY, XYZXYZ, XYXYXY.
func isRepeater(s string) bool {
	for _, parts := range []int{2, 3} {
		if len(s)%parts != 0 {
			continue
		}
		if strings.Repeat(s[:len(s)/parts], parts) == s {
			return true
		}
	}
	return false
}
