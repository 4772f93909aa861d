// Package search driver søket mot /search/commits side for side.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonmartinstorm/commitsnusern/internal/fetcher"
	"github.com/jonmartinstorm/commitsnusern/internal/logger"
	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

const (
	// Query treffer commit-meldinger med lenker til ChatGPT.
	Query   = "chat.openai.com OR chatgpt.com"
	Path    = "/search/commits"
	PerPage = 100
)

type State string

const (
	StateRunning   State = "RUNNING"
	StateExhausted State = "EXHAUSTED"
	StateCapped    State = "CAPPED"
	StateError     State = "ERROR"
	StateDone      State = "DONE"
)

// PageFetcher er det søket trenger fra fetcher.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) (*fetcher.Response, error)
}

// Cursor er traverseringstilstanden. Page øker monotont.
type Cursor struct {
	Page    int
	Items   int
	HasNext bool
	State   State
}

type Result struct {
	Items      []*models.SearchResultItem
	Pages      int
	Stop       State // tilstanden som førte til DONE
	TotalCount int
	Incomplete bool
}

type Collector struct {
	fetcher   PageFetcher
	endpoint  string
	maxPages  int
	pageDelay time.Duration
	sleeper   fetcher.Sleeper
}

type Option func(*Collector)

// WithSleeper bytter ut ventingen mellom sider.
func WithSleeper(s fetcher.Sleeper) Option {
	return func(c *Collector) { c.sleeper = s }
}

// NewCollector lager en driver mot apiURL. pageDelay er pausen etter hver side før neste
// hentes, uavhengig av hvor lang tid forrige side tok.
func NewCollector(f PageFetcher, apiURL string, maxPages int, pageDelay time.Duration, opts ...Option) *Collector {
	c := &Collector{
		fetcher:   f,
		endpoint:  apiURL + Path,
		maxPages:  maxPages,
		pageDelay: pageDelay,
		sleeper:   fetcher.ContextSleeper,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params gir query-parametrene for en gitt side.
func Params(page int) url.Values {
	return url.Values{
		"q":        {Query},
		"sort":     {"author-date"},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(PerPage)},
		"page":     {strconv.Itoa(page)},
	}
}

// Collect henter sider til de er tomme, taket er nådd eller APIet svarer med feil.
// Alt som er samlet inn beholdes også når innhentingen stopper på feil.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	slog.Info("Starter søk etter commits", "maks_sider", c.maxPages, logger.Category(logger.CategoryProgress))

	cur := Cursor{Page: 1, State: StateRunning}
	res := &Result{}

	for cur.State == StateRunning {
		slog.Info("Henter side", "page", cur.Page, logger.Category(logger.CategoryProgress))
		resp, err := c.fetcher.Fetch(ctx, c.endpoint, Params(cur.Page))
		if err != nil {
			if isCancellation(ctx, err) {
				return nil, fmt.Errorf("side %d: %w", cur.Page, err)
			}
			slog.Error("Forespørselen feilet – stopper paginering", "page", cur.Page, "error", err,
				logger.Category(logger.CategoryNetwork))
			res.Pages = cur.Page
			cur.State = StateError
			break
		}
		res.Pages = cur.Page

		if resp.Outcome != fetcher.OutcomeSuccess || resp.StatusCode != http.StatusOK {
			slog.Error("Søket feilet – stopper paginering",
				"status", resp.StatusCode, "body", truncate(resp.Body, 200), "page", cur.Page,
				logger.Category(logger.CategoryAPI))
			cur.State = StateError
			break
		}

		items, page, err := decodePage(resp.Body)
		if err != nil {
			slog.Error("Kunne ikke tolke side – stopper paginering", "page", cur.Page, "error", err,
				logger.Category(logger.CategoryAPI))
			cur.State = StateError
			break
		}
		if cur.Page == 1 {
			res.TotalCount = page.GetTotal()
			slog.Info("Treff totalt", "total_count", res.TotalCount)
		}
		if page.GetIncompleteResults() {
			res.Incomplete = true
			slog.Warn("APIet rapporterer ufullstendige resultater", "page", cur.Page, logger.Category(logger.CategoryAPI))
		}

		if len(items) == 0 {
			slog.Info("Ingen flere resultater", "page", cur.Page)
			cur.State = StateExhausted
			break
		}

		res.Items = append(res.Items, items...)
		cur.Items = len(res.Items)
		cur.HasNext = resp.HasNext
		slog.Info("Side hentet", "nye", len(items), "akkumulert", cur.Items, "slot", resp.Slot,
			logger.Category(logger.CategoryProgress))

		cur.State = next(cur, c.maxPages)
		if cur.State == StateRunning {
			cur.Page++
			if err := c.sleeper.Sleep(ctx, c.pageDelay); err != nil {
				return nil, err
			}
		}
	}

	res.Stop = cur.State
	slog.Info("Søk ferdig", "tilstand", StateDone, "årsak", res.Stop, "sider", res.Pages, "totalt_rått", len(res.Items))
	return res, nil
}

// isCancellation skiller avbrutt kontekst fra feil som bare stopper pagineringen.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// next avgjør overgangen etter en vellykket, ikke-tom side.
func next(cur Cursor, maxPages int) State {
	switch {
	case !cur.HasNext:
		return StateExhausted
	case cur.Page >= maxPages:
		return StateCapped
	default:
		return StateRunning
	}
}

// decodePage tolker hver item for seg slik at ett ødelagt treff ikke forkaster hele siden.
func decodePage(body []byte) ([]*models.SearchResultItem, *models.SearchPage, error) {
	var raw struct {
		Total             *int              `json:"total_count"`
		IncompleteResults *bool             `json:"incomplete_results"`
		Items             []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("ugyldig JSON: %w", err)
	}

	page := &models.SearchPage{Total: raw.Total, IncompleteResults: raw.IncompleteResults}
	items := make([]*models.SearchResultItem, 0, len(raw.Items))
	for i, msg := range raw.Items {
		var item models.SearchResultItem
		if err := json.Unmarshal(msg, &item); err != nil {
			slog.Warn("Hopper over treff som ikke kan tolkes", "index", i, "error", err)
			continue
		}
		items = append(items, &item)
	}
	page.Commits = items
	return items, page, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
