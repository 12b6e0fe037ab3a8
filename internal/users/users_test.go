package users

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const walletA = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func decodeDoc(t *testing.T, m bson.M) userDoc {
	t.Helper()
	raw, err := bson.Marshal(m)
	require.NoError(t, err)
	var doc userDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestUserDoc_ObjectIDFallsBackAsAccount(t *testing.T) {
	oid := primitive.NewObjectID()
	u := decodeDoc(t, bson.M{
		"_id":             oid,
		"wallet_address":  " " + walletA + " ",
		"user_api_key":    "ed25519:key",
		"user_api_secret": "secret",
	}).toUser()

	assert.Equal(t, oid.Hex(), u.ID)
	assert.Equal(t, walletA, u.WalletAddress)
	require.NotNil(t, u.Orderly)
	assert.Equal(t, oid.Hex(), u.Orderly.AccountID)
	assert.True(t, u.Orderly.Complete())
}

func TestUserDoc_ExplicitAccountID(t *testing.T) {
	u := decodeDoc(t, bson.M{
		"_id":             "user-1",
		"wallet_address":  walletA,
		"user_api_key":    "k",
		"user_api_secret": "s",
		"account_id":      "0xacc",
	}).toUser()

	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "0xacc", u.Orderly.AccountID)
}

func TestUserDoc_NoCredentials(t *testing.T) {
	u := decodeDoc(t, bson.M{"_id": "user-2", "wallet_address": walletA}).toUser()
	assert.Nil(t, u.Orderly)
	assert.False(t, u.Orderly.Complete())
}

func TestWalletFilter(t *testing.T) {
	assert.Empty(t, walletFilter(""))

	f := walletFilter(walletA)
	re, ok := f["wallet_address"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, "^"+walletA+"$", re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func writeUsers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFileDirectory_ListUsers(t *testing.T) {
	path := writeUsers(t, `
users:
  - id: alice
    wallet_address: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
    orderly:
      key: ed25519:abc
      secret: def
      account_id: "0xacc"
  - wallet_address: "0x0000000000000000000000000000000000000002"
`)
	dir := NewFileDirectory(path)

	all, err := dir.ListUsers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].ID)
	require.NotNil(t, all[0].Orderly)
	assert.Equal(t, "0xacc", all[0].Orderly.AccountID)
	assert.Nil(t, all[1].Orderly)
	assert.NotEmpty(t, all[1].ID)

	one, err := dir.ListUsers(context.Background(), "0x742D35CC6634C0532925A3B844BC454E4438F44E")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "alice", one[0].ID)
}

func TestFileDirectory_Errors(t *testing.T) {
	_, err := NewFileDirectory(filepath.Join(t.TempDir(), "missing.yaml")).ListUsers(context.Background(), "")
	require.Error(t, err)

	_, err = NewFileDirectory(writeUsers(t, "users: [")).ListUsers(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users: parse")
}
