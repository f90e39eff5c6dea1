package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/quant"
	"github.com/Adhiksha007/AuraFinance/pkg/alphavantage"
	"github.com/Adhiksha007/AuraFinance/pkg/yahoo"
)

const (
	fetchRetries      = 3
	fetchBackoffBase  = 500 * time.Millisecond
	singleFetchWindow = 5 * time.Second
)

// MarketDataService is the MarketDataProvider collaborator: concurrent
// quote/fundamentals/history fetching over Yahoo with Alpha Vantage
// fallback, backed by the invalidatable cache.
type MarketDataService struct {
	config       *config.Config
	cache        *CacheService
	alphaVantage *alphavantage.Client
	yahoo        *yahoo.Client
	workerPool   chan struct{} // semaphore for bounded concurrency
	log          zerolog.Logger
}

func NewMarketDataService(cfg *config.Config, cache *CacheService, log zerolog.Logger) *MarketDataService {
	return &MarketDataService{
		config:       cfg,
		cache:        cache,
		alphaVantage: alphavantage.NewClient(cfg.AlphaVantageKey),
		yahoo:        yahoo.NewClient(),
		workerPool:   make(chan struct{}, cfg.MaxConcurrentFetches),
		log:          log.With().Str("component", "market_data").Logger(),
	}
}

// FetchQuoteBatch fetches quotes for multiple tickers concurrently.
func (s *MarketDataService) FetchQuoteBatch(ctx context.Context, tickers []string) (map[string]*models.TickerData, error) {
	results := make(map[string]*models.TickerData)
	var mu sync.Mutex
	var wg sync.WaitGroup

	errCh := make(chan error, len(tickers))

	for _, ticker := range tickers {
		wg.Add(1)

		go func(symbol string) {
			defer wg.Done()

			s.workerPool <- struct{}{}
			defer func() { <-s.workerPool }()

			fetchCtx, cancel := context.WithTimeout(ctx, singleFetchWindow)
			defer cancel()

			data, err := s.FetchQuote(fetchCtx, symbol)
			if err != nil {
				errCh <- fmt.Errorf("fetch %s: %w", symbol, err)
				return
			}

			mu.Lock()
			results[symbol] = data
			mu.Unlock()
		}(ticker)
	}

	wg.Wait()
	close(errCh)

	if len(results) == 0 {
		for err := range errCh {
			return nil, fmt.Errorf("all quote fetches failed: %v: %w", err, quant.ErrExternalDataUnavailable)
		}
	}
	return results, nil
}

// FetchQuote fetches a single quote with cache and source fallback.
func (s *MarketDataService) FetchQuote(ctx context.Context, symbol string) (*models.TickerData, error) {
	if cached, found := s.cache.GetTickerData(symbol); found {
		return cached, nil
	}

	type result struct {
		data *models.TickerData
		err  error
	}

	yahooCh := make(chan result, 1)
	alphaCh := make(chan result, 1)

	go func() {
		data, err := s.yahoo.GetQuote(ctx, symbol)
		yahooCh <- result{data, err}
	}()
	go func() {
		if s.config.AlphaVantageKey != "" {
			data, err := s.alphaVantage.GetQuote(ctx, symbol)
			alphaCh <- result{data, err}
		} else {
			alphaCh <- result{nil, fmt.Errorf("alpha vantage not configured")}
		}
	}()

	select {
	case res := <-yahooCh:
		if res.err == nil {
			s.cache.SetTickerData(symbol, res.data)
			return res.data, nil
		}
		res = <-alphaCh
		if res.err == nil {
			s.cache.SetTickerData(symbol, res.data)
			return res.data, nil
		}
		return nil, fmt.Errorf("all sources failed for %s: %w", symbol, quant.ErrExternalDataUnavailable)

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchFundamentals fetches company fundamentals with caching.
func (s *MarketDataService) FetchFundamentals(ctx context.Context, symbol string) (*models.TickerData, error) {
	if cached, found := s.cache.GetFundamentals(symbol); found {
		return cached, nil
	}

	data, err := s.yahoo.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fundamentals for %s: %w", symbol, err)
	}
	s.cache.SetFundamentals(symbol, data)
	return data, nil
}

// FetchFundamentalsBatch fetches fundamentals concurrently; tickers whose
// fetch fails are simply absent from the result rather than guessed.
func (s *MarketDataService) FetchFundamentalsBatch(ctx context.Context, tickers []string) map[string]*models.TickerData {
	results := make(map[string]*models.TickerData)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, ticker := range tickers {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			s.workerPool <- struct{}{}
			defer func() { <-s.workerPool }()

			fetchCtx, cancel := context.WithTimeout(ctx, singleFetchWindow)
			defer cancel()

			data, err := s.FetchFundamentals(fetchCtx, symbol)
			if err != nil {
				s.log.Debug().Err(err).Str("symbol", symbol).Msg("fundamentals unavailable")
				return
			}
			mu.Lock()
			results[symbol] = data
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()
	return results
}

// FetchHistoricalSeries fetches daily closes for one ticker over a window,
// with bounded retry and backoff at this boundary. Analytical code never
// retries.
func (s *MarketDataService) FetchHistoricalSeries(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	key := SeriesKey([]string{symbol}, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if cached, found := s.cache.GetSeries(ctx, key); found {
		return cached, nil
	}

	var lastErr error
	for attempt := 0; attempt < fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(fetchBackoffBase * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		series, err := s.yahoo.GetHistoricalSeries(ctx, symbol, start, end)
		if err == nil {
			s.cache.SetSeries(ctx, key, series)
			return series, nil
		}
		lastErr = err

		if s.config.AlphaVantageKey != "" {
			series, err = s.alphaVantage.GetHistoricalSeries(ctx, symbol, start, end)
			if err == nil {
				s.cache.SetSeries(ctx, key, series)
				return series, nil
			}
			lastErr = err
		}
	}
	return nil, fmt.Errorf("history for %s: %v: %w", symbol, lastErr, quant.ErrExternalDataUnavailable)
}

// AlignedHistory fetches historical closes for every ticker and aligns them
// on the dates shared by all series. Fails rather than filling gaps when a
// ticker is missing from the window.
func (s *MarketDataService) AlignedHistory(ctx context.Context, tickers []string, start, end time.Time) ([]string, map[string][]float64, error) {
	type fetched struct {
		symbol string
		series *models.PriceSeries
		err    error
	}

	ch := make(chan fetched, len(tickers))
	for _, ticker := range tickers {
		go func(symbol string) {
			s.workerPool <- struct{}{}
			defer func() { <-s.workerPool }()

			series, err := s.FetchHistoricalSeries(ctx, symbol, start, end)
			ch <- fetched{symbol, series, err}
		}(ticker)
	}

	bySymbol := make(map[string]map[string]float64, len(tickers))
	for range tickers {
		f := <-ch
		if f.err != nil {
			return nil, nil, f.err
		}
		if len(f.series.Dates) == 0 {
			return nil, nil, fmt.Errorf("no data for %s in range: %w", f.symbol, quant.ErrInsufficientHistory)
		}
		byDate := make(map[string]float64, len(f.series.Dates))
		for i, d := range f.series.Dates {
			byDate[d] = f.series.Closes[i]
		}
		bySymbol[f.symbol] = byDate
	}

	// Intersect date axes.
	var shared []string
	for d := range bySymbol[tickers[0]] {
		present := true
		for _, ticker := range tickers[1:] {
			if _, ok := bySymbol[ticker][d]; !ok {
				present = false
				break
			}
		}
		if present {
			shared = append(shared, d)
		}
	}
	if len(shared) < 2 {
		return nil, nil, fmt.Errorf("only %d shared observations across %d tickers: %w",
			len(shared), len(tickers), quant.ErrInsufficientHistory)
	}
	sort.Strings(shared)

	prices := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		series := make([]float64, len(shared))
		for i, d := range shared {
			series[i] = bySymbol[ticker][d]
		}
		prices[ticker] = series
	}
	return shared, prices, nil
}
