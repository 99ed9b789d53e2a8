// Package auto fetches with a plain HTTP probe and promotes to a headless
// renderer when the probe looks like a client-rendered shell.
package auto

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

// Detector decides whether a probe response needs a headless re-fetch.
type Detector interface {
	ShouldPromote(resp crawler.FetchResponse) bool
}

// Fetcher combines a probe fetcher with an optional headless fallback.
type Fetcher struct {
	probe    crawler.Fetcher
	headless crawler.Fetcher
	detector Detector
	limiter  crawler.Limiter
	logger   *zap.Logger
}

// New wires the probe, headless fetcher and detector together. The limiter is
// the run's shared limiter; a promoted request waits on it again before the
// headless fetch. A nil limiter does not wait.
func New(probe, headless crawler.Fetcher, detector Detector, limiter crawler.Limiter, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{probe: probe, headless: headless, detector: detector, limiter: limiter, logger: logger}
}

// Fetch probes first. Only Promotable requests are re-fetched headlessly, and
// a failed promotion falls back to the probe response.
func (f *Fetcher) Fetch(ctx context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	resp, err := f.probe.Fetch(ctx, req)
	if err != nil {
		return crawler.FetchResponse{}, fmt.Errorf("probe fetch: %w", err)
	}
	if !req.Promotable || f.headless == nil || f.detector == nil || !f.detector.ShouldPromote(resp) {
		return resp, nil
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("headless fetch: %w", err)
		}
	}

	headlessResp, err := f.headless.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return crawler.FetchResponse{}, fmt.Errorf("headless fetch: %w", ctx.Err())
		}
		f.logger.Warn("headless promotion failed", zap.String("url", req.URL), zap.Error(err))
		return resp, nil
	}
	headlessResp.UsedHeadless = true
	f.logger.Debug("promoted to headless", zap.String("url", req.URL))
	return headlessResp, nil
}
