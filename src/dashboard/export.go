package dashboard

import (
	"context"
	"fmt"

	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/timeline"
)

// ExportOptions select what an offline GIF export draws.
type ExportOptions struct {
	IncludeShort bool
	Theme        Theme
	// Active limits the players drawn; nil means everyone.
	Active ActiveSet
}

// ExportGIF captures a whole race without a viewer attached, on a private
// timeline, and returns the GIF bytes.
func ExportGIF(ctx context.Context, cfg *models.MConfig, perf *models.MPerformance, comp *models.MCompetition, opts ExportOptions, log *logger.Logger) ([]byte, error) {
	if perf == nil || len(perf.TradingDays) == 0 {
		return nil, ErrNoPerformance
	}

	loop := timeline.NewLoop(nil)
	defer loop.Stop()

	c := NewController(cfg, loop, log)
	defer c.Close()
	c.capture.FrameGap = 0

	type result struct {
		data   []byte
		reason string
		err    error
	}
	done := make(chan result, 1)
	c.OnCaptureFinished = func(data []byte, reason string, err error) {
		done <- result{data: data, reason: reason, err: err}
	}

	if err := c.SetPerformance(ctx, perf, comp); err != nil {
		return nil, err
	}
	err := c.run(ctx, func() error {
		c.includeShort = opts.IncludeShort
		if opts.Active != nil {
			c.active = opts.Active.Clone()
		}
		if opts.Theme != "" {
			c.theme = opts.Theme
			c.renderer.Theme = opts.Theme
		}
		return c.startCapture()
	})
	if err != nil {
		return nil, err
	}

	select {
	case res := <-done:
		switch {
		case res.err != nil:
			return nil, res.err
		case res.data == nil:
			return nil, fmt.Errorf("gif capture ended: %s", res.reason)
		}
		return res.data, nil
	case <-ctx.Done():
		_, _ = c.CancelCapture(context.Background())
		return nil, fmt.Errorf("gif export cancelled: %w", ctx.Err())
	}
}
