package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/earnscope/earnscope/internal/domain"
)

// Report-hour timestamps assigned when the vendor only reports a session
// code. After-close reports land after 16:00 so the event expiry rolls to
// the next day.
var sessionHours = map[string]struct{ hour, min int }{
	"bmo": {8, 0},   // before market open
	"amc": {16, 30}, // after market close
	"dmh": {12, 0},  // during market hours
}

// FinnhubClient serves the earnings calendar from the Finnhub REST API.
// It implements EarningsProvider.
type FinnhubClient struct {
	http *httpClient
	loc  *time.Location
}

// NewFinnhubClient builds a client from config. Timestamps are assigned in
// loc, which should be the exchange timezone.
func NewFinnhubClient(cfg ClientConfig, loc *time.Location, log zerolog.Logger) *FinnhubClient {
	if cfg.Name == "" {
		cfg.Name = "finnhub"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &FinnhubClient{http: newHTTPClient(cfg, log), loc: loc}
}

type finnhubCalendarResp struct {
	EarningsCalendar []struct {
		Date   string `json:"date"`
		Symbol string `json:"symbol"`
		Hour   string `json:"hour"`
	} `json:"earningsCalendar"`
}

// Calendar returns earnings events in [from, to]. Events with an unknown
// session code default to after-close, the conservative assumption for
// expiry selection.
func (f *FinnhubClient) Calendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	u := fmt.Sprintf("%s/calendar/earnings?from=%s&to=%s&token=%s",
		f.http.cfg.BaseURL, from.Format("2006-01-02"), to.Format("2006-01-02"),
		url.QueryEscape(f.http.cfg.APIKey))

	var resp finnhubCalendarResp
	if err := f.http.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch earnings calendar: %w", err)
	}

	events := make([]domain.EarningsEvent, 0, len(resp.EarningsCalendar))
	for _, e := range resp.EarningsCalendar {
		if e.Symbol == "" {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", e.Date, f.loc)
		if err != nil {
			continue
		}
		at, ok := sessionHours[e.Hour]
		if !ok {
			at = sessionHours["amc"]
		}
		events = append(events, domain.EarningsEvent{
			Symbol: e.Symbol,
			At:     time.Date(day.Year(), day.Month(), day.Day(), at.hour, at.min, 0, 0, f.loc),
		})
	}
	return events, nil
}
