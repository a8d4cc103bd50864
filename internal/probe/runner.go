package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/loanoffer/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	percentMultiplier   = 100
)

// Run executes the complete probe and returns its statistics. A run with
// any ranking violation or failed lookup is an error.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := NewHTTPClient(config.BaseURL, config.Timeout)

	logger.Get().Info(ctx, "starting loan offer probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.NumRequests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("logFile", config.LogFile),
		logger.Any("applicants", config.ApplicantIDs))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate requests
	reqs, err := GenerateRequests(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("request generation failed: %w", err)
	}

	// Step 3: Submit requests concurrently
	results, err := submitRequests(ctx, config, client, reqs, stats)
	if err != nil {
		return stats, fmt.Errorf("request submission failed: %w", err)
	}

	// Step 4: Read every response back by id
	if err := fetchBack(ctx, config, client, results, stats); err != nil {
		return stats, fmt.Errorf("offer lookup failed: %w", err)
	}

	// Step 5: Verify rankings
	verifyErr := verifyResults(ctx, config, results, stats)

	// Step 6: Save results to file
	if config.OutputFile != "" {
		if err := saveResultsToFile(ctx, config.OutputFile, results); err != nil {
			logger.Get().Warn(ctx, "failed to save results to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	if stats.RequestsSucceeded == 0 {
		return stats, fmt.Errorf("no request succeeded out of %d", stats.RequestsSubmitted)
	}
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// DefaultOutputFile returns a timestamped results filename.
func DefaultOutputFile() string {
	return "probe_results_" + time.Now().Format("20060102_150405") + ".json"
}

// saveResultsToFile writes the collected results as an indented JSON array.
func saveResultsToFile(ctx context.Context, filename string, results []Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to save")
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64

	if stats.RequestsSubmitted > 0 {
		successRate = float64(stats.RequestsSucceeded) / float64(stats.RequestsSubmitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("requestsGenerated", stats.RequestsGenerated),
		logger.Int("requestsSubmitted", stats.RequestsSubmitted),
		logger.Int("requestsSucceeded", stats.RequestsSucceeded),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("cacheHits", stats.CacheHits),
		logger.Int("offersReturned", stats.OffersReturned),
		logger.Int("lookupsMatched", stats.LookupsMatched),
		logger.Int("lookupsFailed", stats.LookupsFailed),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
