package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhiksha007/AuraFinance/internal/services"
)

func TestParseAllocationQuery(t *testing.T) {
	tickers, weights, err := parseAllocationQuery("aapl, msft,GLD", "0.5,0.3,0.2")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "GLD"}, tickers)
	assert.Equal(t, map[string]float64{"AAPL": 0.5, "MSFT": 0.3, "GLD": 0.2}, weights)
}

func TestParseAllocationQuery_Rejections(t *testing.T) {
	_, _, err := parseAllocationQuery("", "")
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	_, _, err = parseAllocationQuery("AAPL,MSFT", "0.5")
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	_, _, err = parseAllocationQuery("AAPL", "half")
	assert.ErrorIs(t, err, services.ErrInvalidRequest)
}
