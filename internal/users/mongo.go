// Package users reads the wallets to ingest from the user directory. The
// directory is read-only; nothing here writes back to it.
package users

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// DefaultCollection holds one document per user.
const DefaultCollection = "users"

// MongoConfig holds connection parameters for the MongoDB user directory.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// userDoc is the subset of a user document this package reads.
type userDoc struct {
	ID            bson.RawValue `bson:"_id"`
	WalletAddress string        `bson:"wallet_address"`
	APIKey        string        `bson:"user_api_key"`
	APISecret     string        `bson:"user_api_secret"`
	AccountID     string        `bson:"account_id"`
}

// MongoDirectory implements domain.UserDirectory over a MongoDB collection.
type MongoDirectory struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoDirectory connects, pings the primary and returns the directory.
func NewMongoDirectory(ctx context.Context, cfg MongoConfig) (*MongoDirectory, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("users: mongo uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("users: mongo database is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("users: connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("users: ping mongo: %w", err)
	}

	return &MongoDirectory{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// ListUsers returns every user document, or the documents whose wallet
// matches wallet ignoring case.
func (d *MongoDirectory) ListUsers(ctx context.Context, wallet string) ([]domain.User, error) {
	cur, err := d.coll.Find(ctx, walletFilter(wallet),
		options.Find().SetProjection(bson.M{
			"_id":             1,
			"wallet_address":  1,
			"user_api_key":    1,
			"user_api_secret": 1,
			"account_id":      1,
		}))
	if err != nil {
		return nil, fmt.Errorf("users: find: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("users: decode: %w", err)
		}
		out = append(out, doc.toUser())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("users: cursor: %w", err)
	}
	return out, nil
}

// Close disconnects the client.
func (d *MongoDirectory) Close(ctx context.Context) error {
	if err := d.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("users: disconnect mongo: %w", err)
	}
	return nil
}

func walletFilter(wallet string) bson.M {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return bson.M{}
	}
	return bson.M{"wallet_address": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(wallet) + "$",
		Options: "i",
	}}
}

// toUser maps a document to a domain user. The Orderly account id falls
// back to the document id when account_id is absent.
func (d userDoc) toUser() domain.User {
	id := rawID(d.ID)
	u := domain.User{
		ID:            id,
		WalletAddress: strings.TrimSpace(d.WalletAddress),
	}
	if d.APIKey != "" || d.APISecret != "" {
		account := d.AccountID
		if account == "" {
			account = id
		}
		u.Orderly = &domain.OrderlyCredentials{
			Key:       d.APIKey,
			Secret:    d.APISecret,
			AccountID: account,
		}
	}
	return u
}

func rawID(v bson.RawValue) string {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	if v.Type == 0 {
		return ""
	}
	return v.String()
}

var _ domain.UserDirectory = (*MongoDirectory)(nil)
