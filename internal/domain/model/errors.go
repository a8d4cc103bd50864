package model

import "errors"

// Error kinds shared by the pipeline and its collaborators.
var (
	// ErrInvalidConfig is returned by constructors given malformed settings.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidInput is returned when a single request carries bad data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrApplicantNotFound means the profile store has no such applicant.
	ErrApplicantNotFound = errors.New("applicant not found")
	// ErrOfferNotFound means no response was generated under a request id.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrDataUnavailable means a backing store could not be reached.
	ErrDataUnavailable = errors.New("data unavailable")
)
