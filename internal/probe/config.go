package probe

import (
	"time"

	"github.com/okian/loanoffer/internal/domain/types"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumRequests  int           // Number of offer requests to send
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	ApplicantIDs []string      // Applicants to draw requests for
	OutputFile   string        // Output file for the collected responses
	LogFile      string        // Log file for probe output
	Verbose      bool          // Log every violation as it is found
}

// Request is one generated offer request and its position in the run.
type Request struct {
	Index int
	Body  types.OfferRequest
}

// Result is one request/response pair collected by the probe.
type Result struct {
	Request    types.OfferRequest  `json:"request"`
	Response   types.OfferResponse `json:"response"`
	CacheHit   bool                `json:"cache_hit"`
	Status     int                 `json:"status"`
	Violations []string            `json:"violations,omitempty"`
}

// Stats holds probe statistics.
type Stats struct {
	RequestsGenerated int
	RequestsSubmitted int
	RequestsSucceeded int
	RequestsFailed    int
	CacheHits         int
	OffersReturned    int
	LookupsMatched    int
	LookupsFailed     int
	Violations        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
