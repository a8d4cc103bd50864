// Command offer-probe drives a running loan offer service with generated
// requests and checks every ranking it gets back.
package main

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/loanoffer/internal/adapters/repository"
	"github.com/okian/loanoffer/internal/probe"
)

// Default configuration constants.
const (
	defaultNumRequests = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offer-probe",
		Short: "Probe a loan offer service and verify its rankings",
		Long: `Sends concurrent offer requests to a running loan offer service, reads each
response back by request id and checks that every ranking is well formed:
ranks run 1..N, scores never increase down the list and each base tenure
appears once.`,
		Example: `  # Probe with default settings
  offer-probe

  # Heavier run against another instance
  offer-probe --requests 20000 --workers 32 --url http://localhost:8080`,
		SilenceUsage: true,
		RunE:         runProbe,
	}

	f := cmd.Flags()
	f.String("url", "http://localhost:9080", "base URL of the service")
	f.Int("requests", defaultNumRequests, "number of offer requests to send")
	f.StringSlice("applicants", nil, "applicant ids to draw requests for (default: the seeded samples)")
	f.Int("workers", runtime.NumCPU()*defaultWorkers, "number of concurrent workers")
	f.Duration("timeout", defaultTimeout, "HTTP request timeout")
	f.String("output", "", "output file for collected responses (default: probe_results_TIMESTAMP.json)")
	f.String("log", "", "log file for probe output (default: probe_log_TIMESTAMP.log)")
	f.Bool("verbose", false, "log every violation as it is found")
	return cmd
}

func runProbe(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	baseURL, _ := f.GetString("url")
	numReqs, _ := f.GetInt("requests")
	applicants, _ := f.GetStringSlice("applicants")
	workers, _ := f.GetInt("workers")
	timeout, _ := f.GetDuration("timeout")
	outputFile, _ := f.GetString("output")
	logFile, _ := f.GetString("log")
	verbose, _ := f.GetBool("verbose")

	closer, err := probe.SetupLogging(logFile)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
	defer cancel()

	if outputFile == "" {
		outputFile = probe.DefaultOutputFile()
	}

	_, err = probe.Run(ctx, &probe.Config{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		NumRequests:  numReqs,
		Workers:      workers,
		Timeout:      timeout,
		ApplicantIDs: applicantIDs(applicants),
		OutputFile:   outputFile,
		LogFile:      logFile,
		Verbose:      verbose,
	})
	return err
}

// applicantIDs trims the flag values, falling back to the seeded samples.
func applicantIDs(values []string) []string {
	var ids []string
	for _, id := range values {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, p := range repository.SampleProfiles() {
		ids = append(ids, p.ApplicantID)
	}
	return ids
}
