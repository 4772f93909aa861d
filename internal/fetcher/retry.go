package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jonmartinstorm/commitsnusern/internal/logger"
)

const (
	DefaultMaxRetries      = 5
	DefaultInitialInterval = 1500 * time.Millisecond
)

// retryableStatus er statuskodene som prøves på nytt med eksponentiell backoff.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// DefaultBackOff gir 1.5s, 3s, 6s ... mellom forsøkene.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultInitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// retryTransport prøver 5xx og 429 på nytt et begrenset antall ganger. Når forsøkene er
// brukt opp returneres siste respons uendret. Forbindelsesfeil sendes rett videre.
// timeout gjelder hvert forsøk for seg, også lesing av body.
type retryTransport struct {
	base       http.RoundTripper
	newBackOff func() backoff.BackOff
	maxRetries uint64
	timeout    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var last *http.Response

	op := func() error {
		if last != nil {
			discard(last)
			last = nil
		}
		resp, err := t.roundTripOnce(req)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = resp
		if retryableStatus[resp.StatusCode] {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("Midlertidig feil fra API – prøver igjen",
			"error", err, "venter", wait, "url", req.URL.Path, logger.Category(logger.CategoryAPI))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), t.maxRetries), req.Context())
	err := backoff.RetryNotify(op, b, notify)
	if err == nil {
		return last, nil
	}

	var se *statusError
	if errors.As(err, &se) && last != nil {
		return last, nil
	}
	if last != nil {
		discard(last)
	}
	return nil, err
}

func (t *retryTransport) roundTripOnce(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.base.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody frigjør forsøkets kontekst når body lukkes.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		slog.Debug("Klarte ikke å lukke body", "error", err)
	}
}
