package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adhiksha007/AuraFinance/internal/quant"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{services.ErrInvalidRequest, 400},
		{quant.ErrInvalidTolerance, 400},
		{quant.ErrInvalidHorizon, 400},
		{quant.ErrInvalidDateRange, 400},
		{quant.ErrInsufficientData, 422},
		{quant.ErrInsufficientHistory, 422},
		{quant.ErrInfeasibleUniverse, 422},
		{quant.ErrDegenerateInput, 422},
		{quant.ErrExternalDataUnavailable, 502},
		{errors.New("disk on fire"), 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, statusFor(tc.err), "error %v", tc.err)
		wrapped := fmt.Errorf("context: %w", tc.err)
		assert.Equal(t, tc.code, statusFor(wrapped), "wrapped %v", tc.err)
	}
}
