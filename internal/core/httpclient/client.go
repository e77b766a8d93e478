package httpclient

import (
	"net/http"
	"time"

	"banner-editor/internal/core/logger"

	"go.uber.org/zap"
)

// LoggingRoundTripper logs outbound requests of one upstream service.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
	// Service names the upstream in log entries, e.g. "s3".
	Service string
}

// redactedURL drops the query, which carries request signatures for object stores.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := logger.Get().With(
		zap.String("service", lrt.Service),
		zap.String("method", req.Method),
		zap.String("url", redactedURL(req)),
	)

	log.Debug("HTTP Request Started")

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		log.Error("HTTP Request Failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Warn("HTTP Request Returned Server Error",
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return resp, nil
	}

	log.Debug("HTTP Request Completed",
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client for service with logging middleware.
func NewClient(service string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: http.DefaultTransport,
			Service: service,
		},
		Timeout: timeout,
	}
}
