package probe

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/loanoffer/internal/domain/types"
	"github.com/okian/loanoffer/pkg/logger"
)

const scoreTolerance = 1e-9

// VerifyResponse checks one ranked response and returns every problem found.
// Ranks must run 1..N, scores must not increase down the list, and each base
// tenure may appear only once.
func VerifyResponse(resp types.OfferResponse) []string {
	var problems []string
	if resp.RequestID == "" {
		problems = append(problems, "missing request id")
	}
	seen := make(map[int]struct{}, len(resp.Offers))
	for i, o := range resp.Offers {
		if o.Rank != i+1 {
			problems = append(problems, fmt.Sprintf("offer %d has rank %d", i, o.Rank))
		}
		if i > 0 && o.Score > resp.Offers[i-1].Score+scoreTolerance {
			problems = append(problems, fmt.Sprintf("offer %d scores %.6f above offer %d (%.6f)",
				i, o.Score, i-1, resp.Offers[i-1].Score))
		}
		if _, dup := seen[o.BaseTenureMonths]; dup {
			problems = append(problems, fmt.Sprintf("tenure %d offered twice", o.BaseTenureMonths))
		}
		seen[o.BaseTenureMonths] = struct{}{}
		if o.Amount <= 0 || o.TenureMonths <= 0 || o.Rate <= 0 {
			problems = append(problems, fmt.Sprintf("offer %d has non-positive terms", i))
		}
	}
	return problems
}

// compareResponses reports the first difference between a generated response
// and the one read back, or "" when they agree.
func compareResponses(want, got types.OfferResponse) string {
	if want.RequestID != got.RequestID {
		return fmt.Sprintf("request id %q != %q", got.RequestID, want.RequestID)
	}
	if want.ApplicantID != got.ApplicantID {
		return fmt.Sprintf("applicant %q != %q", got.ApplicantID, want.ApplicantID)
	}
	if len(want.Offers) != len(got.Offers) {
		return fmt.Sprintf("%d offers != %d", len(got.Offers), len(want.Offers))
	}
	for i := range want.Offers {
		w, g := want.Offers[i], got.Offers[i]
		if w.Rank != g.Rank || w.BaseTenureMonths != g.BaseTenureMonths {
			return fmt.Sprintf("offer %d: rank/tenure %d/%d != %d/%d", i, g.Rank, g.BaseTenureMonths, w.Rank, w.BaseTenureMonths)
		}
		if math.Abs(w.Score-g.Score) > scoreTolerance {
			return fmt.Sprintf("offer %d: score %.6f != %.6f", i, g.Score, w.Score)
		}
	}
	return ""
}

// verifyResults runs VerifyResponse over every successful result and
// records the violations on it.
func verifyResults(ctx context.Context, config *Config, results []Result, stats *Stats) error {
	logger.Get().Info(ctx, "verifying rankings")

	for i := range results {
		res := &results[i]
		if res.Response.RequestID == "" {
			continue
		}
		stats.OffersReturned += len(res.Response.Offers)
		problems := VerifyResponse(res.Response)
		if len(problems) == 0 {
			continue
		}
		res.Violations = append(res.Violations, problems...)
		if config.Verbose {
			logger.Get().Warn(ctx, "ranking violation",
				logger.String("requestID", res.Response.RequestID),
				logger.Any("problems", problems))
		}
	}
	for _, res := range results {
		stats.Violations += len(res.Violations)
	}

	if stats.Violations > 0 {
		return fmt.Errorf("%d violations across %d responses", stats.Violations, len(results))
	}
	logger.Get().Info(ctx, "rankings verified", logger.Int("offers", stats.OffersReturned))
	return nil
}
