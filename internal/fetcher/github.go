package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/jonmartinstorm/commitsnusern/internal/logger"
)

const (
	// AcceptHeader er nødvendig for /search/commits.
	AcceptHeader = "application/vnd.github.cloak-preview"
	UserAgent    = "commitsnusern/1.0"

	DefaultTimeout           = 25 * time.Second
	DefaultRateLimitCooldown = 10 * time.Minute
	DefaultNetworkRetryDelay = 5 * time.Second
)

// Outcome klassifiserer ett forsøk eller det endelige svaret fra Fetch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomeRateLimited
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown(" + strconv.Itoa(int(o)) + ")"
}

// Response er et ferdig lest svar. Outcome er OutcomeSuccess for 2xx; alt annet betyr at
// gjenforsøk ikke løste problemet.
type Response struct {
	StatusCode    int
	Body          []byte
	HasNext       bool
	NextURL       string
	Slot          int
	Attempts      int
	RateRemaining string
	Outcome       Outcome
}

// SlotSource er en oauth2.TokenSource som kan fortelle hvilken plass som sist ble brukt.
type SlotSource interface {
	oauth2.TokenSource
	LastSlot() int
}

type Fetcher struct {
	client              *http.Client
	source              SlotSource
	sleeper             Sleeper
	limiter             *rate.Limiter
	cooldown            time.Duration
	networkDelay        time.Duration
	maxRateLimitRetries int
}

type Option func(*options)

type options struct {
	base                http.RoundTripper
	timeout             time.Duration
	sleeper             Sleeper
	limiter             *rate.Limiter
	cooldown            time.Duration
	networkDelay        time.Duration
	maxRateLimitRetries int
	maxRetries          uint64
	newBackOff          func() backoff.BackOff
}

func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

func WithRateLimitCooldown(d time.Duration) Option {
	return func(o *options) { o.cooldown = d }
}

// WithMaxRateLimitRetries begrenser antall nedkjølinger per forespørsel. 0 er ubegrenset.
func WithMaxRateLimitRetries(n int) Option {
	return func(o *options) { o.maxRateLimitRetries = n }
}

// WithRequestsPerMinute struper alle forsøk proaktivt, også de etter nedkjøling og
// nettverksfeil. 0 slår strupingen av.
func WithRequestsPerMinute(n int) Option {
	return func(o *options) {
		if n <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

func WithNetworkRetryDelay(d time.Duration) Option {
	return func(o *options) { o.networkDelay = d }
}

func WithRetryPolicy(maxRetries uint64, newBackOff func() backoff.BackOff) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.newBackOff = newBackOff
	}
}

func NewFetcher(source SlotSource, opts ...Option) *Fetcher {
	o := options{
		base:         http.DefaultTransport,
		timeout:      DefaultTimeout,
		sleeper:      ContextSleeper,
		cooldown:     DefaultRateLimitCooldown,
		networkDelay: DefaultNetworkRetryDelay,
		maxRetries:   DefaultMaxRetries,
		newBackOff:   DefaultBackOff,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &oauth2.Transport{
		Source: source,
		Base: &retryTransport{
			base:       o.base,
			newBackOff: o.newBackOff,
			maxRetries: o.maxRetries,
			timeout:    o.timeout,
		},
	}

	return &Fetcher{
		client:              &http.Client{Transport: transport},
		source:              source,
		sleeper:             o.sleeper,
		limiter:             o.limiter,
		cooldown:            o.cooldown,
		networkDelay:        o.networkDelay,
		maxRateLimitRetries: o.maxRateLimitRetries,
	}
}

// Fetch gjør en GET med rotert token. 403 gir lang nedkjøling og nytt forsøk, forbindelses-
// feil gir kort pause og nytt forsøk. Returnert feil betyr at forespørselen ikke kunne
// bygges eller at konteksten ble avsluttet.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ugyldig URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ugyldig URL %q: mangler skjema eller vert", rawURL)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	target := u.String()

	cooldowns := 0
	for attempt := 1; ; attempt++ {
		resp, outcome, err := f.attempt(ctx, target)

		switch outcome {
		case OutcomeSuccess, OutcomeFailed:
			resp.Attempts = attempt
			resp.Outcome = outcome
			return resp, nil

		case OutcomeRateLimited:
			cooldowns++
			if f.maxRateLimitRetries > 0 && cooldowns > f.maxRateLimitRetries {
				slog.Error("Gir opp etter gjentatte 403",
					"nedkjølinger", f.maxRateLimitRetries, "slot", resp.Slot, logger.Category(logger.CategoryRateLimit))
				resp.Attempts = attempt
				resp.Outcome = outcome
				return resp, nil
			}
			slog.Warn("403 (rate limit) – venter før nytt forsøk",
				"venter", f.cooldown, "slot", resp.Slot, "forsøk", attempt, logger.Category(logger.CategoryRateLimit))
			if err := f.sleeper.Sleep(ctx, f.cooldown); err != nil {
				return nil, err
			}

		case OutcomeTransient:
			slog.Warn("Nettverksfeil – prøver igjen",
				"error", err, "venter", f.networkDelay, "forsøk", attempt, logger.Category(logger.CategoryNetwork))
			if err := f.sleeper.Sleep(ctx, f.networkDelay); err != nil {
				return nil, err
			}

		default:
			return nil, err
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, target string) (*Response, Outcome, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, OutcomeFatal, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, OutcomeFatal, err
	}
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, OutcomeFatal, ctxErr
		}
		if IsTransient(err) {
			return nil, OutcomeTransient, err
		}
		return nil, OutcomeFatal, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("Klarte ikke å lukke body", "error", cerr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, OutcomeFatal, ctxErr
		}
		return nil, OutcomeTransient, fmt.Errorf("lesing av body feilet: %w", err)
	}

	link := resp.Header.Get("Link")
	out := &Response{
		StatusCode:    resp.StatusCode,
		Body:          body,
		NextURL:       NextLink(link),
		Slot:          f.source.LastSlot(),
		RateRemaining: resp.Header.Get("X-RateLimit-Remaining"),
	}
	out.HasNext = HasNextPage(link)

	slog.Debug("Svar mottatt", "status", resp.StatusCode, "slot", out.Slot, "gjenstår", out.RateRemaining)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return out, OutcomeRateLimited, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return out, OutcomeSuccess, nil
	default:
		return out, OutcomeFailed, nil
	}
}

// IsTransient avgjør om en transportfeil skyldes nettverket (tidsavbrudd, DNS, avvist
// eller brutt forbindelse, TLS-håndtrykk og sertifikater) og derfor kan prøves på nytt.
func IsTransient(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return true
		}
		err = uerr.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if isTLSError(err) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}
