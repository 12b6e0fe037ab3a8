package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/config"
	"github.com/alanyoungcy/tradefetch/internal/domain"
)

func TestRunOptions(t *testing.T) {
	cfg := config.Defaults()

	opts, err := runOptions(&cfg, "Orderly", " 0x742d35Cc6634C0532925a3b844Bc454e4438f44e ", true)
	require.NoError(t, err)
	assert.Equal(t, []domain.Platform{domain.PlatformOrderly}, opts.Platforms)
	assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", opts.Wallet)
	assert.True(t, opts.Once)

	cfg.Fetch.Platforms = []string{"hyperliquid"}
	opts, err = runOptions(&cfg, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, []domain.Platform{domain.PlatformHyperliquid}, opts.Platforms)
	assert.Empty(t, opts.Wallet)
}

func TestRunOptions_Rejects(t *testing.T) {
	cfg := config.Defaults()

	_, err := runOptions(&cfg, "binance", "", false)
	require.Error(t, err)

	_, err = runOptions(&cfg, "", "0x742d35b8", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid wallet address")
}
