package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Adhiksha007/AuraFinance/internal/models"
)

const (
	chartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	summaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
)

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				PreviousClose       float64 `json:"previousClose"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string `json:"longName"`
				MarketCap struct {
					Raw float64 `json:"raw"`
				} `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				Beta struct {
					Raw float64 `json:"raw"`
				} `json:"beta"`
			} `json:"summaryDetail"`
			FinancialData struct {
				ReturnOnEquity struct {
					Raw float64 `json:"raw"`
				} `json:"returnOnEquity"`
			} `json:"financialData"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.TickerData, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", chartURL, symbol)

	var chartResp chartResponse
	if err := c.getJSON(ctx, url, &chartResp); err != nil {
		return nil, err
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	result := chartResp.Chart.Result[0]
	price := result.Meta.RegularMarketPrice
	previousClose := result.Meta.PreviousClose
	change := price - previousClose
	changePercent := 0.0
	if previousClose > 0 {
		changePercent = (change / previousClose) * 100
	}

	return &models.TickerData{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        result.Meta.RegularMarketVolume,
		LastUpdated:   time.Now(),
		Source:        "yahoo",
	}, nil
}

// GetFundamentals fetches company name, market cap, beta, ROE and sector.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*models.TickerData, error) {
	url := fmt.Sprintf("%s/%s?modules=price,summaryDetail,financialData,assetProfile", summaryURL, symbol)

	var sumResp summaryResponse
	if err := c.getJSON(ctx, url, &sumResp); err != nil {
		return nil, err
	}
	if len(sumResp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no fundamentals returned for symbol %s", symbol)
	}

	r := sumResp.QuoteSummary.Result[0]
	return &models.TickerData{
		Symbol:      symbol,
		Company:     r.Price.LongName,
		MarketCap:   r.Price.MarketCap.Raw,
		Beta:        r.SummaryDetail.Beta.Raw,
		ROE:         r.FinancialData.ReturnOnEquity.Raw,
		Sector:      r.AssetProfile.Sector,
		LastUpdated: time.Now(),
		Source:      "yahoo",
	}, nil
}

// GetHistoricalSeries fetches daily closes between two instants, returning
// the series with its date axis.
func (c *Client) GetHistoricalSeries(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d", chartURL, symbol, start.Unix(), end.Unix())

	var chartResp chartResponse
	if err := c.getJSON(ctx, url, &chartResp); err != nil {
		return nil, err
	}
	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no historical data for %s", symbol)
	}

	result := chartResp.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	series := &models.PriceSeries{Symbol: symbol, FetchedAt: time.Now()}
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] <= 0 {
			continue
		}
		series.Dates = append(series.Dates, time.Unix(ts, 0).UTC().Format("2006-01-02"))
		series.Closes = append(series.Closes, closes[i])
	}
	return series, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo finance returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}
