package provider

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/earnscope/earnscope/internal/domain"
)

// PolygonClient serves option chains and price history from the Polygon
// REST API. It implements ChainProvider and PriceProvider.
type PolygonClient struct {
	http *httpClient
}

// NewPolygonClient builds a client from config.
func NewPolygonClient(cfg ClientConfig, log zerolog.Logger) *PolygonClient {
	if cfg.Name == "" {
		cfg.Name = "polygon"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.polygon.io"
	}
	return &PolygonClient{http: newHTTPClient(cfg, log)}
}

type polygonContractsResp struct {
	Results []struct {
		ExpirationDate string `json:"expiration_date"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

// Expiries lists distinct unexpired expiration dates for the symbol.
func (p *PolygonClient) Expiries(ctx context.Context, symbol string) ([]time.Time, error) {
	u := fmt.Sprintf("%s/v3/reference/options/contracts?underlying_ticker=%s&expired=false&limit=1000&apiKey=%s",
		p.http.cfg.BaseURL, url.QueryEscape(symbol), p.http.cfg.APIKey)

	var resp polygonContractsResp
	if err := p.http.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch expiries for %s: %w", symbol, err)
	}

	seen := make(map[string]struct{})
	var expiries []time.Time
	for _, r := range resp.Results {
		if _, ok := seen[r.ExpirationDate]; ok {
			continue
		}
		seen[r.ExpirationDate] = struct{}{}
		d, err := time.Parse("2006-01-02", r.ExpirationDate)
		if err != nil {
			continue
		}
		expiries = append(expiries, d)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries, nil
}

type polygonChainResp struct {
	Results []struct {
		Details struct {
			Ticker         string  `json:"ticker"`
			StrikePrice    float64 `json:"strike_price"`
			ContractType   string  `json:"contract_type"`
			ExpirationDate string  `json:"expiration_date"`
		} `json:"details"`
		Day struct {
			Volume float64 `json:"volume"`
		} `json:"day"`
		LastQuote struct {
			Bid *float64 `json:"bid"`
			Ask *float64 `json:"ask"`
		} `json:"last_quote"`
		LastTrade struct {
			Price *float64 `json:"price"`
		} `json:"last_trade"`
		Greeks struct {
			Delta *float64 `json:"delta"`
			Gamma *float64 `json:"gamma"`
			Theta *float64 `json:"theta"`
			Vega  *float64 `json:"vega"`
		} `json:"greeks"`
		ImpliedVolatility *float64 `json:"implied_volatility"`
		OpenInterest      *float64 `json:"open_interest"`
		UnderlyingAsset   struct {
			Price *float64 `json:"price"`
		} `json:"underlying_asset"`
	} `json:"results"`
}

// Chain returns the snapshot of every contract on one expiry. Missing quote
// fields stay nil; the extractor decides what each absence means.
func (p *PolygonClient) Chain(ctx context.Context, symbol string, expiry time.Time) ([]domain.ContractSnapshot, error) {
	u := fmt.Sprintf("%s/v3/snapshot/options/%s?expiration_date=%s&limit=250&apiKey=%s",
		p.http.cfg.BaseURL, url.PathEscape(symbol), expiry.Format("2006-01-02"), p.http.cfg.APIKey)

	var resp polygonChainResp
	if err := p.http.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch chain for %s %s: %w", symbol, expiry.Format("2006-01-02"), err)
	}

	now := time.Now()
	snaps := make([]domain.ContractSnapshot, 0, len(resp.Results))
	for _, r := range resp.Results {
		var typ domain.OptionType
		switch r.Details.ContractType {
		case "call":
			typ = domain.Call
		case "put":
			typ = domain.Put
		default:
			continue
		}
		exp, err := time.Parse("2006-01-02", r.Details.ExpirationDate)
		if err != nil {
			continue
		}
		snap := domain.ContractSnapshot{
			Contract: domain.OptionContract{
				OptionSymbol: r.Details.Ticker,
				Symbol:       symbol,
				Expiry:       exp,
				Strike:       r.Details.StrikePrice,
				Type:         typ,
			},
			Market: domain.MarketSnapshot{
				AsOf:         now,
				OptionSymbol: r.Details.Ticker,
				UnderlyingPx: r.UnderlyingAsset.Price,
				Bid:          r.LastQuote.Bid,
				Ask:          r.LastQuote.Ask,
				Last:         r.LastTrade.Price,
				IV:           r.ImpliedVolatility,
				Delta:        r.Greeks.Delta,
				Gamma:        r.Greeks.Gamma,
				Theta:        r.Greeks.Theta,
				Vega:         r.Greeks.Vega,
				Volume:       domain.Float(r.Day.Volume),
			},
		}
		if r.OpenInterest != nil {
			snap.Market.OpenInterest = domain.Int64(int64(*r.OpenInterest))
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

type polygonLastTradeResp struct {
	Results struct {
		Price float64 `json:"p"`
	} `json:"results"`
}

// Spot returns the last trade price for the underlying.
func (p *PolygonClient) Spot(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v2/last/trade/%s?apiKey=%s",
		p.http.cfg.BaseURL, url.PathEscape(symbol), p.http.cfg.APIKey)

	var resp polygonLastTradeResp
	if err := p.http.getJSON(ctx, u, &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch spot for %s: %w", symbol, err)
	}
	if resp.Results.Price <= 0 {
		return 0, fmt.Errorf("no spot price for %s", symbol)
	}
	return resp.Results.Price, nil
}

type polygonAggsResp struct {
	Results []struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

// DailyBars returns up to limit daily bars ending at asof, oldest first.
func (p *PolygonClient) DailyBars(ctx context.Context, symbol string, asof time.Time, limit int) ([]domain.Bar, error) {
	// Calendar padding covers weekends and holidays in the lookback.
	from := asof.AddDate(0, 0, -(limit*7/5 + 10))
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		p.http.cfg.BaseURL, url.PathEscape(symbol),
		from.Format("2006-01-02"), asof.Format("2006-01-02"), limit*2, p.http.cfg.APIKey)

	var resp polygonAggsResp
	if err := p.http.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, domain.Bar{
			Date:   domain.DateOf(time.UnixMilli(r.T).UTC()),
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
