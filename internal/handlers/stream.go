package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

const streamBuffer = 64

// streamRun executes fn in the background and writes its progress events
// to the client as server-sent events. Exactly one terminal event is
// written; a client disconnect cancels the run.
func streamRun(c *fiber.Ctx, timeout time.Duration, fn func(context.Context, *services.ProgressReporter) (any, error)) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	rep := services.NewProgressReporter(streamBuffer)

	go func() {
		rep.Info("run started")
		result, err := fn(ctx, rep)
		if err != nil {
			rep.Fail(err)
			return
		}
		rep.Complete(result)
	}()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for ev := range rep.Events() {
			if err := writeEvent(w, ev); err != nil {
				return
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, ev models.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// parseAllocationQuery turns aligned comma-separated ticker and weight
// lists into a weights map.
func parseAllocationQuery(tickersCSV, weightsCSV string) ([]string, map[string]float64, error) {
	if tickersCSV == "" || weightsCSV == "" {
		return nil, nil, fmt.Errorf("tickers and weights are required: %w", services.ErrInvalidRequest)
	}

	tickers := strings.Split(tickersCSV, ",")
	parts := strings.Split(weightsCSV, ",")
	if len(tickers) != len(parts) {
		return nil, nil, fmt.Errorf("%d tickers but %d weights: %w", len(tickers), len(parts), services.ErrInvalidRequest)
	}

	weights := make(map[string]float64, len(tickers))
	for i, t := range tickers {
		t = strings.TrimSpace(strings.ToUpper(t))
		w, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("weight %q: %w", parts[i], services.ErrInvalidRequest)
		}
		tickers[i] = t
		weights[t] = w
	}
	return tickers, weights, nil
}
