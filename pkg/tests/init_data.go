package tests

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	tu "github.com/mymmrac/telego/telegoutil"
)

// SignInitData returns params encoded as Mini App init data with a hash
// that telegoutil.ValidateWebAppData accepts for botToken.
func SignInitData(params url.Values, botToken string) string {
	check, _ := url.QueryUnescape(strings.ReplaceAll(params.Encode(), "&", "\n"))

	secret := hmac.New(sha256.New, []byte(tu.WebAppSecret))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(check))

	signed := url.Values{}
	for k, v := range params {
		signed[k] = v
	}
	signed.Set(tu.WebAppHash, hex.EncodeToString(h.Sum(nil)))

	return signed.Encode()
}
