package services

import (
	"context"

	"github.com/rs/zerolog"
)

// SentimentProvider scores tickers in [-1, 1]; positive means bullish.
// Tickers it cannot score are absent from the result.
type SentimentProvider interface {
	Scores(ctx context.Context, tickers []string) map[string]float64
}

// momentumSentiment derives sentiment from recent price momentum. The
// day's percent change is clamped to [-5%, +5%] and normalized, so a
// ticker up 5% or more on the day scores 1.0.
type momentumSentiment struct {
	market *MarketDataService
	log    zerolog.Logger
}

const momentumFullScale = 5.0 // percent move that saturates the score

func NewMomentumSentiment(market *MarketDataService, log zerolog.Logger) SentimentProvider {
	return &momentumSentiment{
		market: market,
		log:    log.With().Str("component", "sentiment").Logger(),
	}
}

func (p *momentumSentiment) Scores(ctx context.Context, tickers []string) map[string]float64 {
	quotes, err := p.market.FetchQuoteBatch(ctx, tickers)
	if err != nil {
		p.log.Warn().Err(err).Msg("sentiment quotes unavailable, proceeding unscored")
		return map[string]float64{}
	}

	scores := make(map[string]float64, len(quotes))
	for symbol, q := range quotes {
		pct := q.ChangePercent
		if pct > momentumFullScale {
			pct = momentumFullScale
		} else if pct < -momentumFullScale {
			pct = -momentumFullScale
		}
		scores[symbol] = pct / momentumFullScale
	}
	return scores
}
