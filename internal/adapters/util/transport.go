package util

import (
	"booklist/internal/logger"
	"bytes"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// maxLoggedBody caps how much of a response body is written to the debug log.
const maxLoggedBody = 4096

// LoggingTransport is an http.RoundTripper that logs outbound requests and
// response bodies when debug logging is enabled.
type LoggingTransport struct {
	Base http.RoundTripper
}

func (t *LoggingTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !logger.IsDebug() {
		return t.base().RoundTrip(req)
	}

	log := logger.For(req.Context())
	log.Debugf("OUTBOUND REQUEST: [%s] %s", req.Method, req.URL.String())

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		log.Debugf("OUTBOUND REQUEST FAILED: %s: %v", req.URL.String(), err)
		return resp, err
	}

	log.Debugf("OUTBOUND RESPONSE: %d %s", resp.StatusCode, req.URL.String())

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	if len(respBody) > 0 {
		logged := respBody
		if len(logged) > maxLoggedBody {
			logged = logged[:maxLoggedBody]
		}
		log.Debugf("OUTBOUND RESPONSE BODY: %s", string(logged))
	}

	return resp, nil
}

// RateLimitTransport delays outbound requests so they stay under Limiter's rate.
// A nil Limiter lets every request through.
type RateLimitTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

// NewRateLimitTransport wraps base with a limiter of perSecond requests per
// second. A non-positive rate returns base unchanged.
func NewRateLimitTransport(base http.RoundTripper, perSecond float64) http.RoundTripper {
	if perSecond <= 0 {
		return base
	}
	return &RateLimitTransport{
		Base:    base,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
