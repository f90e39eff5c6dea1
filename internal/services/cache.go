package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/models"
)

// Cache is a generic in-memory TTL cache. Values are treated as immutable
// snapshots: Clear swaps the whole map under the write lock, so readers that
// already hold a value keep a consistent view and never see a torn mix of
// old and new entries.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*cacheItem[V]
	ttl   time.Duration
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
	}

	go c.cleanup()

	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Clear drops every entry at once.
func (c *Cache[K, V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	c.items = make(map[K]*cacheItem[V])
	return n
}

func (c *Cache[K, V]) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.items {
			if now.After(item.expiration) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

// CacheService layers the in-memory caches over an optional Firestore
// write-through, so warm price history survives restarts when a project is
// configured.
type CacheService struct {
	config          *config.Config
	firestoreClient *firestore.Client
	log             zerolog.Logger

	tickerCache       *Cache[string, *models.TickerData]
	fundamentalsCache *Cache[string, *models.TickerData]
	seriesCache       *Cache[string, *models.PriceSeries]
}

func NewCacheService(cfg *config.Config, log zerolog.Logger) *CacheService {
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour

	var client *firestore.Client
	if cfg.FirestoreProject != "" {
		var err error
		client, err = firestore.NewClient(context.Background(), cfg.FirestoreProject)
		if err != nil {
			log.Warn().Err(err).Msg("firestore unavailable, falling back to in-memory cache only")
			client = nil
		}
	}

	return &CacheService{
		config:            cfg,
		firestoreClient:   client,
		log:               log.With().Str("component", "cache").Logger(),
		tickerCache:       NewCache[string, *models.TickerData](1 * time.Hour),
		fundamentalsCache: NewCache[string, *models.TickerData](ttl),
		seriesCache:       NewCache[string, *models.PriceSeries](ttl),
	}
}

// SeriesKey builds the historical-series cache key: sorted symbol plus the
// requested range, so identical windows hit regardless of request order.
func SeriesKey(symbols []string, start, end string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return fmt.Sprintf("series:%s:%s:%s", strings.Join(sorted, ","), start, end)
}

func (s *CacheService) GetTickerData(symbol string) (*models.TickerData, bool) {
	return s.tickerCache.Get(symbol)
}

func (s *CacheService) SetTickerData(symbol string, data *models.TickerData) {
	s.tickerCache.Set(symbol, data)
}

func (s *CacheService) GetFundamentals(symbol string) (*models.TickerData, bool) {
	return s.fundamentalsCache.Get(symbol)
}

func (s *CacheService) SetFundamentals(symbol string, data *models.TickerData) {
	s.fundamentalsCache.Set(symbol, data)
}

// GetSeries retrieves a cached price series, consulting Firestore on an
// in-memory miss.
func (s *CacheService) GetSeries(ctx context.Context, key string) (*models.PriceSeries, bool) {
	if series, found := s.seriesCache.Get(key); found {
		return series, true
	}

	if s.firestoreClient != nil {
		doc, err := s.firestoreClient.Collection("price_series").Doc(docID(key)).Get(ctx)
		if err == nil {
			var series models.PriceSeries
			if err := doc.DataTo(&series); err == nil {
				ttl := time.Duration(s.config.CacheTTLHours) * time.Hour
				if time.Since(series.FetchedAt) < ttl {
					s.seriesCache.Set(key, &series)
					return &series, true
				}
			}
		}
	}

	return nil, false
}

// SetSeries stores a price series in memory and, when configured, in
// Firestore.
func (s *CacheService) SetSeries(ctx context.Context, key string, series *models.PriceSeries) {
	s.seriesCache.Set(key, series)

	if s.firestoreClient != nil {
		if _, err := s.firestoreClient.Collection("price_series").Doc(docID(key)).Set(ctx, series); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("firestore series write failed")
		}
	}
}

// ClearSeries invalidates every cached historical series in one shot. The
// in-memory swap is atomic; Firestore cleanup failures are reported but do
// not leave a partially-cleared memory cache behind.
func (s *CacheService) ClearSeries(ctx context.Context) (int, error) {
	n := s.seriesCache.Clear()

	if s.firestoreClient != nil {
		iter := s.firestoreClient.Collection("price_series").Documents(ctx)
		batch := s.firestoreClient.Batch()
		deletes := 0
		for {
			doc, err := iter.Next()
			if err != nil {
				break
			}
			batch.Delete(doc.Ref)
			deletes++
		}
		if deletes > 0 {
			if _, err := batch.Commit(ctx); err != nil {
				return n, fmt.Errorf("firestore series clear: %w", err)
			}
		}
	}

	s.log.Info().Int("entries", n).Msg("historical price cache cleared")
	return n, nil
}

// Persistent reports whether the Firestore write-through is active.
func (s *CacheService) Persistent() bool {
	return s.firestoreClient != nil
}

func (s *CacheService) Close() error {
	if s.firestoreClient != nil {
		return s.firestoreClient.Close()
	}
	return nil
}

// docID flattens a cache key into a Firestore-safe document id.
func docID(key string) string {
	return strings.NewReplacer("/", "_", ":", "_", ",", "_").Replace(key)
}
