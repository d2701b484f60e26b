package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrServerNotRunning        = errors.New("server not running")
	ErrServerAlreadyRunning    = errors.New("server already running")
	ErrServerStartFailed       = errors.New("server start failed")
	ErrRouteFinalizationFailed = errors.New("route finalization failed")
	ErrHandlerIsNil            = errors.New("handler is nil")
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

var (
	ErrCronIsRunning         = errors.New("cron is running")
	ErrCronJobExists         = errors.New("cron job exists")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronJobTimeout        = errors.New("cron job timeout")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrMetricsIsDisabled  = errors.New("metrics manager is disabled")
)

var (
	ErrClientResponseInvalid = errors.New("client response invalid")
	ErrClientRedirectLimit   = errors.New("client redirect limit exceeded")
	ErrClientTimeout         = errors.New("client timeout")
	ErrCircuitBreakerOpen    = errors.New("circuit breaker open")
)

var (
	ErrLogFileIsEmpty      = errors.New("log file is empty")
	ErrLogFileWrongFormat  = errors.New("log file wrong format")
	ErrLoggerTypeUnknown   = errors.New("logger type unknown")
	ErrLoggerConfigInvalid = errors.New("logger config invalid")
)

var (
	ErrServiceIsRunning     = errors.New("service is running")
	ErrServiceIsNotRunning  = errors.New("service is not running")
	ErrComponentStartFailed = errors.New("component start failed")
	ErrHealthIsNotRunning   = errors.New("health manager is not running")
)

// Upstream taxonomy. Only ErrNotFound ever reaches an HTTP caller.
var (
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrNotFound             = errors.New("not found")
	ErrParseFailure         = errors.New("parse failure")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrEmptyResult          = errors.New("empty result")
	ErrSlotPanic            = errors.New("slot panic")
	ErrNoCandidate          = errors.New("no candidate succeeded")
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidState     = errors.New("invalid state")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
