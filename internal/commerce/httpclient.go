package commerce

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// newHTTPClient creates the client used for commerce API calls. timeout is
// the fixed upper bound of a whole request, body included.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// newBreaker opens after consecutive transport failures or 5xx responses so
// a dead backend fails fast instead of holding every caller for the full
// timeout. Calls are never retried. A request abandoned by its caller says
// nothing about the backend and is not counted.
func newBreaker(failures int, logger *slog.Logger) circuitbreaker.CircuitBreaker[*rawResponse] {
	if failures == 0 {
		failures = 5
	}
	return circuitbreaker.New[*rawResponse](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("commerce circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})
}
