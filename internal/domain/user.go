package domain

import "context"

// OrderlyCredentials is the per-account key material for the Orderly API.
type OrderlyCredentials struct {
	Key       string
	Secret    string
	AccountID string
}

// Complete reports whether every credential field is set.
func (c *OrderlyCredentials) Complete() bool {
	return c != nil && c.Key != "" && c.Secret != "" && c.AccountID != ""
}

// User is a wallet owner read from the user directory. It is never mutated
// by the ingestion pipeline.
type User struct {
	ID            string
	WalletAddress string
	Orderly       *OrderlyCredentials
}

// UserDirectory is the read-only source of wallets to ingest.
type UserDirectory interface {
	// ListUsers returns every user, or only the user owning wallet when
	// wallet is non-empty.
	ListUsers(ctx context.Context, wallet string) ([]User, error)
}
