package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/models"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache[string, int](time.Minute)

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("a", 1)
	v, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, 1, v)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache[string, int](10 * time.Millisecond)

	c.Set("a", 1)
	time.Sleep(30 * time.Millisecond)

	_, found := c.Get("a")
	assert.False(t, found)
}

func TestCache_ClearReportsCount(t *testing.T) {
	c := NewCache[string, int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.Equal(t, 2, c.Clear())
	assert.Equal(t, 0, c.Clear())

	_, found := c.Get("a")
	assert.False(t, found)
}

func TestCacheService_ClearSeriesLeavesQuotesAlone(t *testing.T) {
	svc := NewCacheService(&config.Config{CacheTTLHours: 1}, zerolog.Nop())
	defer svc.Close()

	key := SeriesKey([]string{"AAPL"}, "2024-01-01", "2025-01-01")
	svc.SetSeries(context.Background(), key, &models.PriceSeries{Symbol: "AAPL"})
	svc.SetTickerData("AAPL", &models.TickerData{Symbol: "AAPL", Price: 190})

	cleared, err := svc.ClearSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, found := svc.GetSeries(context.Background(), key)
	assert.False(t, found)

	// Quote caches are independent of the series invalidation.
	quote, found := svc.GetTickerData("AAPL")
	require.True(t, found)
	assert.Equal(t, 190.0, quote.Price)
}

func TestSeriesKey_OrderInsensitive(t *testing.T) {
	a := SeriesKey([]string{"MSFT", "AAPL"}, "2023-01-01", "2024-01-01")
	b := SeriesKey([]string{"AAPL", "MSFT"}, "2023-01-01", "2024-01-01")
	assert.Equal(t, a, b)

	c := SeriesKey([]string{"AAPL", "MSFT"}, "2023-01-01", "2024-06-01")
	assert.NotEqual(t, a, c)
}
