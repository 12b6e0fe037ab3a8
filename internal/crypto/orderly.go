// Package crypto signs authenticated venue requests.
package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const keyPrefix = "ed25519:"

// ErrInvalidSecret is returned when an Orderly secret does not decode to an
// ed25519 seed or private key.
var ErrInvalidSecret = errors.New("crypto: invalid orderly secret")

// OrderlyAuth holds the credentials of one Orderly account and signs its
// requests. The signature is ed25519(secret, timestamp+method+path+body)
// encoded as URL-safe base64.
type OrderlyAuth struct {
	Key       string // "ed25519:<base58 public key>"
	AccountID string
	priv      ed25519.PrivateKey
}

// NewOrderlyAuth decodes secret, which may carry the "ed25519:" prefix and is
// base58 encoded. Both a 32-byte seed and a 64-byte private key are accepted.
func NewOrderlyAuth(key, secret, accountID string) (*OrderlyAuth, error) {
	raw := base58.Decode(strings.TrimPrefix(strings.TrimSpace(secret), keyPrefix))
	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("%w: decoded %d bytes", ErrInvalidSecret, len(raw))
	}
	return &OrderlyAuth{
		Key:       strings.TrimSpace(key),
		AccountID: accountID,
		priv:      priv,
	}, nil
}

// Headers returns the authentication headers for a request. path includes
// the query string.
//
// Returned header keys:
//   - orderly-timestamp
//   - orderly-account-id
//   - orderly-key
//   - orderly-signature
func (a *OrderlyAuth) Headers(method, path, body string) map[string]string {
	return a.HeadersAt(method, path, body, time.Now().UnixMilli())
}

// HeadersAt is like Headers but lets the caller supply the millisecond
// timestamp.
func (a *OrderlyAuth) HeadersAt(method, path, body string, unixMillis int64) map[string]string {
	ts := strconv.FormatInt(unixMillis, 10)
	message := ts + strings.ToUpper(method) + path + body
	sig := ed25519.Sign(a.priv, []byte(message))

	return map[string]string{
		"orderly-timestamp":  ts,
		"orderly-account-id": a.AccountID,
		"orderly-key":        a.Key,
		"orderly-signature":  base64.URLEncoding.EncodeToString(sig),
	}
}

// PublicKey returns the public half of the signing key.
func (a *OrderlyAuth) PublicKey() ed25519.PublicKey {
	return a.priv.Public().(ed25519.PublicKey)
}

// String returns a redacted representation suitable for logging.
func (a *OrderlyAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 12 {
			return "****"
		}
		return s[:12] + "****"
	}
	return fmt.Sprintf("OrderlyAuth{account=%s, key=%s}", a.AccountID, redact(a.Key))
}
