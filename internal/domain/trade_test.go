package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" Hyperliquid ")
	require.NoError(t, err)
	assert.Equal(t, PlatformHyperliquid, p)

	p, err = ParsePlatform("orderly")
	require.NoError(t, err)
	assert.Equal(t, PlatformOrderly, p)

	_, err = ParsePlatform("binance")
	assert.Error(t, err)
}

func TestAllPlatformsOrder(t *testing.T) {
	assert.Equal(t, []Platform{PlatformHyperliquid, PlatformOrderly}, AllPlatforms())
}

func TestLatestExecutedAt(t *testing.T) {
	_, ok := LatestExecutedAt(nil)
	assert.False(t, ok)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	latest, ok := LatestExecutedAt([]TradeRecord{
		{ExecutedAt: base.Add(time.Hour)},
		{ExecutedAt: base.Add(3 * time.Hour)},
		{ExecutedAt: base},
	})
	require.True(t, ok)
	assert.Equal(t, base.Add(3*time.Hour), latest)
}

func TestOrderlyCredentialsComplete(t *testing.T) {
	var nilCreds *OrderlyCredentials
	assert.False(t, nilCreds.Complete())
	assert.False(t, (&OrderlyCredentials{Key: "k", Secret: "s"}).Complete())
	assert.True(t, (&OrderlyCredentials{Key: "k", Secret: "s", AccountID: "a"}).Complete())
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x12345678...", ShortAddress("0x1234567890abcdef"))
	assert.Equal(t, "0xabc", ShortAddress("0xabc"))
}

func TestRunStatsTotalInserted(t *testing.T) {
	s := NewRunStats()
	s.Inserted[PlatformHyperliquid] = 3
	s.Inserted[PlatformOrderly] = 4
	assert.Equal(t, 7, s.TotalInserted())
}
