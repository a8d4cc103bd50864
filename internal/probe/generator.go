package probe

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/loanoffer/internal/domain/types"
	"github.com/okian/loanoffer/pkg/logger"
)

// Request shape ranges.
const (
	minAmount     = 50_000
	amountStep    = 25_000
	amountBuckets = 40
)

var (
	tenureChoices  = []int{6, 12, 18, 24, 36, 48, 60}
	purposeChoices = []string{"home", "car", "education", "medical", "travel", "business"}
	sourceChoices  = []string{"web", "app", "partner"}
)

// randomIndex returns a uniform index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// GenerateRequests builds n offer requests spread over the applicant ids.
// Every other request repeats its predecessor so the cache path is
// exercised too.
func GenerateRequests(ctx context.Context, config *Config, stats *Stats) ([]Request, error) {
	if len(config.ApplicantIDs) == 0 {
		return nil, fmt.Errorf("no applicant ids to generate requests for")
	}
	if config.NumRequests <= 0 {
		return nil, fmt.Errorf("number of requests must be positive, got %d", config.NumRequests)
	}

	logger.Get().Info(ctx, "generating offer requests",
		logger.Int("numRequests", config.NumRequests),
		logger.Int("applicants", len(config.ApplicantIDs)))

	runID := uuid.NewString()
	out := make([]Request, 0, config.NumRequests)
	for i := 0; i < config.NumRequests; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during request generation: %w", err)
		}
		if i%2 == 1 {
			prev := out[i-1]
			prev.Index = i
			out = append(out, prev)
			continue
		}
		out = append(out, generateSingleRequest(i, runID, config.ApplicantIDs))
	}

	stats.RequestsGenerated = len(out)
	logger.Get().Info(ctx, "generated offer requests", logger.Int("count", len(out)), logger.String("runID", runID))
	return out, nil
}

// generateSingleRequest draws one request for a random applicant.
func generateSingleRequest(index int, runID string, applicantIDs []string) Request {
	return Request{
		Index: index,
		Body: types.OfferRequest{
			ApplicantID:           applicantIDs[randomIndex(len(applicantIDs))],
			RequestedAmount:       float64(minAmount + amountStep*randomIndex(amountBuckets)),
			PreferredTenureMonths: tenureChoices[randomIndex(len(tenureChoices))],
			Purpose:               purposeChoices[randomIndex(len(purposeChoices))],
			Source:                sourceChoices[randomIndex(len(sourceChoices))] + ":" + runID,
		},
	}
}
