package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport failures and unexpected status codes
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents documents that could not be parsed
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents 429/430 answers and active rate-limit blocks
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeVerification represents bot-challenge pages served instead of content
	ErrorTypeVerification ErrorType = "verification"
	// ErrorTypeEmpty represents listings without any event
	ErrorTypeEmpty ErrorType = "empty"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeUnexpected represents recovered panics
	ErrorTypeUnexpected ErrorType = "unexpected"
)

// ScrapeError is an error raised while scraping one venue
type ScrapeError struct {
	Type    ErrorType
	Venue   string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Venue, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Venue, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	return e.Type == ErrorTypeNetwork
}

// TypeOf returns the type of the first ScrapeError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

// Is reports whether err's chain carries a ScrapeError of the given type
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// New creates a new ScrapeError
func New(errType ErrorType, venue, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Venue:   venue,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(venue, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, venue, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(venue, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, venue, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(venue string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, venue, message, nil)
}

// NewVerification creates an error for a bot-challenge page
func NewVerification(venue, url string) *ScrapeError {
	return New(ErrorTypeVerification, venue, "verification page served for "+url, nil)
}

// NewEmpty creates an error for a listing without events
func NewEmpty(venue, message string) *ScrapeError {
	return New(ErrorTypeEmpty, venue, message, nil)
}

// NewCache creates a new cache error
func NewCache(venue, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, venue, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(venue, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, venue, message, err)
}

// NewValidation creates a new validation error
func NewValidation(venue, message string) *ScrapeError {
	return New(ErrorTypeValidation, venue, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewUnexpected wraps a recovered panic value
func NewUnexpected(venue string, recovered interface{}) *ScrapeError {
	return New(ErrorTypeUnexpected, venue, fmt.Sprintf("panic: %v", recovered), nil)
}
