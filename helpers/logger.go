package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/clubticketworker/logger"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogError(venue string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends per-venue failures to an error log file and mirrors
// everything to the structured logger.
type Logger struct {
	errorFile string
	mu        sync.Mutex
}

// NewLogger creates a new logger instance. An empty path disables the file.
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to a file with venue and timestamp
func (l *Logger) LogError(venue string, err error) {
	logger.ForVenue(venue).Error().Err(err).Msg("venue failed")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Warn("failed to open error log %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, venue, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.ForWorker().Info().Msgf(format, args...)
}
