package fetcher_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonmartinstorm/commitsnusern/internal/credentials"
	"github.com/jonmartinstorm/commitsnusern/internal/fetcher"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

type flakyTransport struct {
	failures int
	calls    int
	err      error
	base     http.RoundTripper
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	if t.calls <= t.failures {
		return nil, t.err
	}
	return t.base.RoundTrip(req)
}

func noWait() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

var _ = Describe("Fetcher.Fetch", func() {
	var (
		pool    *credentials.Pool
		sleeper *recordingSleeper
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		pool, err = credentials.NewPool([]string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		sleeper = &recordingSleeper{}
		ctx = context.Background()
	})

	newFetcher := func(opts ...fetcher.Option) *fetcher.Fetcher {
		base := []fetcher.Option{
			fetcher.WithSleeper(sleeper),
			fetcher.WithRetryPolicy(2, noWait),
		}
		return fetcher.NewFetcher(pool, append(base, opts...)...)
	}

	It("setter påkrevde headere, roterer token og sender query-parametre", func() {
		var auths []string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auths = append(auths, r.Header.Get("Authorization"))
			Expect(r.Method).To(Equal(http.MethodGet))
			Expect(r.Header.Get("Accept")).To(Equal("application/vnd.github.cloak-preview"))
			Expect(r.Header.Get("User-Agent")).To(Equal("commitsnusern/1.0"))
			Expect(r.URL.Query().Get("q")).To(Equal("chat.openai.com OR chatgpt.com"))
			Expect(r.URL.Query().Get("page")).To(Equal("1"))
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{"items":[]}`)
		}))
		defer ts.Close()

		f := newFetcher()
		params := url.Values{"q": {"chat.openai.com OR chatgpt.com"}, "page": {"1"}}
		for i := 0; i < 3; i++ {
			resp, err := f.Fetch(ctx, ts.URL+"/search/commits", params)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Outcome).To(Equal(fetcher.OutcomeSuccess))
		}

		Expect(auths).To(Equal([]string{"token a", "token b", "token a"}))
		Expect(sleeper.waits).To(BeEmpty())
	})

	It("venter én nedkjøling på 403 og returnerer det vellykkede svaret", func() {
		callCount := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			if callCount == 1 {
				w.WriteHeader(http.StatusForbidden)
				_, _ = fmt.Fprint(w, `{"message":"You have exceeded a secondary rate limit"}`)
				return
			}
			w.Header().Set("Link", `<`+"http://x/search/commits?page=2"+`>; rel="next", <http://x/search/commits?page=10>; rel="last"`)
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{"message":"ok"}`)
		}))
		defer ts.Close()

		f := newFetcher(fetcher.WithRateLimitCooldown(10 * time.Minute))
		resp, err := f.Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeSuccess))
		Expect(string(resp.Body)).To(ContainSubstring("ok"))
		Expect(resp.HasNext).To(BeTrue())
		Expect(resp.NextURL).To(Equal("http://x/search/commits?page=2"))
		Expect(resp.Attempts).To(Equal(2))
		Expect(resp.Slot).To(Equal(2))
		Expect(sleeper.waits).To(Equal([]time.Duration{10 * time.Minute}))
		Expect(callCount).To(Equal(2))
	})

	It("gir opp etter konfigurert antall nedkjølinger", func() {
		callCount := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			w.WriteHeader(http.StatusForbidden)
			_, _ = fmt.Fprint(w, `{"message":"access denied"}`)
		}))
		defer ts.Close()

		f := newFetcher(fetcher.WithMaxRateLimitRetries(2), fetcher.WithRateLimitCooldown(time.Minute))
		resp, err := f.Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeRateLimited))
		Expect(string(resp.Body)).To(ContainSubstring("access denied"))
		Expect(sleeper.waits).To(HaveLen(2))
		Expect(callCount).To(Equal(3))
	})

	It("prøver 5xx på nytt med samme token og returnerer siste svar når forsøkene er brukt opp", func() {
		var auths []string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auths = append(auths, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprint(w, `{"message":"bad gateway"}`)
		}))
		defer ts.Close()

		f := newFetcher()
		resp, err := f.Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeFailed))
		Expect(string(resp.Body)).To(ContainSubstring("bad gateway"))
		Expect(auths).To(Equal([]string{"token a", "token a", "token a"}))
		Expect(sleeper.waits).To(BeEmpty())
	})

	It("lykkes når 429 går over innenfor forsøksbudsjettet", func() {
		callCount := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			if callCount == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{}`)
		}))
		defer ts.Close()

		resp, err := newFetcher().Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeSuccess))
		Expect(callCount).To(Equal(2))
	})

	It("returnerer 4xx uten gjenforsøk", func() {
		callCount := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer ts.Close()

		resp, err := newFetcher().Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeFailed))
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(callCount).To(Equal(1))
	})

	It("venter kort og prøver igjen ved forbindelsesfeil", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{}`)
		}))
		defer ts.Close()

		flaky := &flakyTransport{
			failures: 1,
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			base:     http.DefaultTransport,
		}
		f := newFetcher(fetcher.WithTransport(flaky), fetcher.WithNetworkRetryDelay(5*time.Second))

		resp, err := f.Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeSuccess))
		Expect(resp.Attempts).To(Equal(2))
		Expect(flaky.calls).To(Equal(2))
		Expect(sleeper.waits).To(Equal([]time.Duration{5 * time.Second}))
	})

	It("behandler tidsavbrudd per forsøk som nettverksfeil", func() {
		var callCount atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if callCount.Add(1) == 1 {
				time.Sleep(200 * time.Millisecond)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{}`)
		}))
		defer ts.Close()

		f := newFetcher(fetcher.WithTimeout(50 * time.Millisecond))
		resp, err := f.Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeSuccess))
		Expect(resp.Attempts).To(Equal(2))
		Expect(sleeper.waits).To(Equal([]time.Duration{fetcher.DefaultNetworkRetryDelay}))
	})

	It("prøver sertifikatfeil på nytt etter kort pause", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{}`)
		}))
		defer ts.Close()

		flaky := &flakyTransport{failures: 1, err: x509.UnknownAuthorityError{}, base: http.DefaultTransport}
		resp, err := newFetcher(fetcher.WithTransport(flaky)).Fetch(ctx, ts.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Outcome).To(Equal(fetcher.OutcomeSuccess))
		Expect(flaky.calls).To(Equal(2))
		Expect(sleeper.waits).To(Equal([]time.Duration{fetcher.DefaultNetworkRetryDelay}))
	})

	It("struper forespørsler proaktivt når det er satt en grense", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		// 1200 per minutt gir 50 ms mellom forespørslene
		f := newFetcher(fetcher.WithRequestsPerMinute(1200))
		start := time.Now()
		for i := 0; i < 3; i++ {
			_, err := f.Fetch(ctx, ts.URL, nil)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(time.Since(start)).To(BeNumerically(">=", 100*time.Millisecond))
	})

	It("returnerer feil for feil som ikke skyldes nettverket", func() {
		flaky := &flakyTransport{failures: 1, err: errors.New("boom"), base: http.DefaultTransport}
		f := newFetcher(fetcher.WithTransport(flaky))

		_, err := f.Fetch(ctx, "http://example.invalid", nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("boom"))
		Expect(sleeper.waits).To(BeEmpty())
	})

	It("skal feile på ugyldig request-format (syntax)", func() {
		_, err := newFetcher().Fetch(ctx, ":", nil)
		Expect(err).To(HaveOccurred())
	})

	It("returnerer kontekstfeil når konteksten er avsluttet", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newFetcher().Fetch(cctx, ts.URL, nil)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})

var _ = Describe("IsTransient", func() {
	It("gjenkjenner nettverksfeil", func() {
		Expect(fetcher.IsTransient(&url.Error{Op: "Get", URL: "x", Err: &net.DNSError{Err: "no such host", Name: "x"}})).To(BeTrue())
		Expect(fetcher.IsTransient(&url.Error{Op: "Get", URL: "x", Err: syscall.ECONNRESET})).To(BeTrue())
	})

	It("gjenkjenner feil i TLS-håndtrykk og sertifikater", func() {
		Expect(fetcher.IsTransient(&url.Error{Op: "Get", URL: "x", Err: x509.UnknownAuthorityError{}})).To(BeTrue())
		Expect(fetcher.IsTransient(&url.Error{Op: "Get", URL: "x", Err: &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}})).To(BeTrue())
		Expect(fetcher.IsTransient(&url.Error{Op: "Get", URL: "x", Err: x509.HostnameError{Host: "api.github.com"}})).To(BeTrue())
		Expect(fetcher.IsTransient(tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"})).To(BeTrue())
	})

	It("avviser andre feil", func() {
		Expect(fetcher.IsTransient(&url.Error{Op: "Get", URL: "x", Err: errors.New("unsupported protocol scheme")})).To(BeFalse())
	})
})

var _ = Describe("ContextSleeper", func() {
	It("avbrytes av konteksten", func() {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := fetcher.ContextSleeper.Sleep(cctx, time.Hour)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("venter den oppgitte tiden", func() {
		start := time.Now()
		Expect(fetcher.ContextSleeper.Sleep(context.Background(), 20*time.Millisecond)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically(">=", 20*time.Millisecond))
	})
})
