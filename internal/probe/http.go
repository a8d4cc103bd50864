package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/loanoffer/internal/domain/types"
	"github.com/okian/loanoffer/pkg/logger"
)

// Progress reporting interval.
const reportInterval = time.Second

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// decodeOffers reads an offer response, closing the body.
func decodeOffers(resp *http.Response) (types.OfferResponse, error) {
	defer func() { _ = resp.Body.Close() }()

	var out types.OfferResponse
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return out, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// submitRequests posts every request with at most config.Workers in flight.
// Failed requests are counted, not returned; only context cancellation
// aborts the run.
func submitRequests(ctx context.Context, config *Config, client *HTTPClient, reqs []Request, stats *Stats) ([]Result, error) {
	logger.Get().Info(ctx, "submitting offer requests",
		logger.Int("count", len(reqs)), logger.Int("workers", config.Workers))

	results := make([]Result, len(reqs))
	var (
		submitted  atomic.Int64
		succeeded  atomic.Int64
		failed     atomic.Int64
		hits       atomic.Int64
		lastReport atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))
	for _, r := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := submitSingleRequest(gctx, client, r)
			results[r.Index] = res
			submitted.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				if config.Verbose {
					logger.Get().Warn(gctx, "offer request failed", logger.Int("index", r.Index), logger.Error(err))
				}
			default:
				succeeded.Add(1)
				if res.CacheHit {
					hits.Add(1)
				}
			}

			now := time.Now().UnixNano()
			last := lastReport.Load()
			if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
				logger.Get().Info(gctx, "progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int("total", len(reqs)),
					logger.Int64("succeeded", succeeded.Load()),
					logger.Int64("failed", failed.Load()))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("submission aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission aborted: %w", err)
	}

	stats.RequestsSubmitted = int(submitted.Load())
	stats.RequestsSucceeded = int(succeeded.Load())
	stats.RequestsFailed = int(failed.Load())
	stats.CacheHits = int(hits.Load())

	logger.Get().Info(ctx, "offer submission completed",
		logger.Int("succeeded", stats.RequestsSucceeded),
		logger.Int("cacheHits", stats.CacheHits),
		logger.Int("failed", stats.RequestsFailed))
	return results, nil
}

// submitSingleRequest posts one request and decodes the ranked offers.
func submitSingleRequest(ctx context.Context, client *HTTPClient, r Request) (Result, error) {
	res := Result{Request: r.Body}
	resp, err := client.Post(ctx, "/v1/offers", r.Body)
	if err != nil {
		return res, err
	}
	res.Status = resp.StatusCode
	res.CacheHit = resp.Header.Get("X-Cache") == "hit"

	out, err := decodeOffers(resp)
	if err != nil {
		return res, err
	}
	res.Response = out
	return res, nil
}

// fetchBack reads every successful response again by request id and checks
// the service returns the same ranking.
func fetchBack(ctx context.Context, config *Config, client *HTTPClient, results []Result, stats *Stats) error {
	logger.Get().Info(ctx, "reading offers back by request id")

	var matched, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))
	for i := range results {
		if results[i].Response.RequestID == "" {
			continue
		}
		g.Go(func() error {
			res := &results[i]
			resp, err := client.Get(gctx, "/v1/offers/"+res.Response.RequestID)
			if err == nil {
				var got types.OfferResponse
				if got, err = decodeOffers(resp); err == nil {
					if diff := compareResponses(res.Response, got); diff != "" {
						err = fmt.Errorf("lookup differs: %s", diff)
					}
				}
			}
			if err != nil {
				failed.Add(1)
				res.Violations = append(res.Violations, err.Error())
				if config.Verbose {
					logger.Get().Warn(gctx, "offer lookup failed",
						logger.String("requestID", res.Response.RequestID), logger.Error(err))
				}
				return gctx.Err()
			}
			matched.Add(1)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("lookup aborted: %w", err)
	}

	stats.LookupsMatched = int(matched.Load())
	stats.LookupsFailed = int(failed.Load())
	return nil
}
