package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/httpclient"
)

// Authentication headers.
const (
	headerKey        = "CB-ACCESS-KEY"
	headerSign       = "CB-ACCESS-SIGN"
	headerTimestamp  = "CB-ACCESS-TIMESTAMP"
	headerPassphrase = "CB-ACCESS-PASSPHRASE"
)

// Credentials authenticate REST requests.
type Credentials struct {
	Key        string
	Secret     string // base64 encoded
	Passphrase string
}

// Valid reports whether every field is set.
func (c Credentials) Valid() bool {
	return c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// String returns a redacted representation suitable for logging.
func (c Credentials) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("Credentials{key=%s, secret=%s}", redact(c.Key), redact(c.Secret))
}

// newSigner returns a request signer. The signature is the base64
// HMAC-SHA256, keyed by the decoded secret, of timestamp + method +
// request path (with query) + body.
func newSigner(creds Credentials, now func() time.Time) (httpclient.Signer, error) {
	secret, err := base64.StdEncoding.DecodeString(creds.Secret)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("api secret is not base64"), apperror.WithCause(err))
	}

	return func(req *http.Request, body []byte) error {
		ts := strconv.FormatInt(now().Unix(), 10)
		sig := sign(secret, ts, req.Method, req.URL.RequestURI(), body)

		req.Header.Set(headerKey, creds.Key)
		req.Header.Set(headerSign, sig)
		req.Header.Set(headerTimestamp, ts)
		req.Header.Set(headerPassphrase, creds.Passphrase)
		return nil
	}, nil
}

func sign(secret []byte, timestamp, method, requestPath string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + requestPath))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
