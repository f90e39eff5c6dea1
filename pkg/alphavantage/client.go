package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Adhiksha007/AuraFinance/internal/models"
)

const baseURL = "https://www.alphavantage.co/query"

type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Price            string `json:"05. price"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
	} `json:"Global Quote"`
}

type dailySeriesResponse struct {
	TimeSeries map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.TickerData, error) {
	url := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", baseURL, symbol, c.apiKey)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var quoteResp globalQuoteResponse
	if err := json.Unmarshal(body, &quoteResp); err != nil {
		return nil, err
	}
	if quoteResp.GlobalQuote.Symbol == "" {
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	price, _ := strconv.ParseFloat(quoteResp.GlobalQuote.Price, 64)
	change, _ := strconv.ParseFloat(quoteResp.GlobalQuote.Change, 64)
	volume, _ := strconv.ParseInt(quoteResp.GlobalQuote.Volume, 10, 64)

	changePercent := 0.0
	if price > 0 {
		changePercent = (change / (price - change)) * 100
	}

	return &models.TickerData{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        volume,
		LastUpdated:   time.Now(),
		Source:        "alphavantage",
	}, nil
}

// GetHistoricalSeries fetches daily closes and trims them to [start, end].
func (c *Client) GetHistoricalSeries(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	url := fmt.Sprintf("%s?function=TIME_SERIES_DAILY&symbol=%s&outputsize=full&apikey=%s", baseURL, symbol, c.apiKey)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var seriesResp dailySeriesResponse
	if err := json.Unmarshal(body, &seriesResp); err != nil {
		return nil, err
	}
	if len(seriesResp.TimeSeries) == 0 {
		return nil, fmt.Errorf("no historical data for %s", symbol)
	}

	dates := make([]string, 0, len(seriesResp.TimeSeries))
	for d := range seriesResp.TimeSeries {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	startStr := start.Format("2006-01-02")
	endStr := end.Format("2006-01-02")
	series := &models.PriceSeries{Symbol: symbol, FetchedAt: time.Now()}
	for _, d := range dates {
		if d < startStr || d > endStr {
			continue
		}
		close, err := strconv.ParseFloat(seriesResp.TimeSeries[d].Close, 64)
		if err != nil || close <= 0 {
			continue
		}
		series.Dates = append(series.Dates, d)
		series.Closes = append(series.Closes, close)
	}
	if len(series.Dates) == 0 {
		return nil, fmt.Errorf("no data in range for %s", symbol)
	}
	return series, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
