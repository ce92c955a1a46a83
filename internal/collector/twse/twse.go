// Package twse quotes Taiwan listings from the TWSE market information
// system (MIS), which serves both exchange (tse) and OTC (otc) symbols.
package twse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/core"
)

const (
	baseURL = "https://mis.twse.com.tw/stock/api/getStockInfo.jsp"

	// maxChannels bounds the ex_ch list of a single request.
	maxChannels = 50
)

// TWSE implements collector.BatchCollector for the TW market.
type TWSE struct {
	client  *http.Client
	config  collector.Config
	baseURL string
}

// New creates a new TWSE collector
func New() *TWSE {
	return &TWSE{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

func (t *TWSE) Name() string {
	return "twse"
}

func (t *TWSE) SupportedMarkets() []core.HoldingMarket {
	return []core.HoldingMarket{core.HoldingMarketTW}
}

func (t *TWSE) Init(cfg collector.Config) error {
	t.config = cfg
	if cfg.Timeout > 0 {
		t.client.Timeout = cfg.Timeout
	}
	if cfg.BaseURL != "" {
		t.baseURL = cfg.BaseURL
	}
	return nil
}

// FetchQuote implements collector.Collector.
func (t *TWSE) FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error) {
	quotes, err := t.FetchQuotes(ctx, []string{symbol}, market)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}
	return &quotes[0], nil
}

// FetchQuotes implements collector.BatchCollector. Every symbol is asked
// for on both boards since the caller does not know where it is listed.
func (t *TWSE) FetchQuotes(ctx context.Context, symbols []string, market core.HoldingMarket) ([]core.Quote, error) {
	if market != core.HoldingMarketTW {
		return nil, fmt.Errorf("twse only quotes the TW market, got %s", market)
	}

	var quotes []core.Quote
	perRequest := maxChannels / 2
	for start := 0; start < len(symbols); start += perRequest {
		end := min(start+perRequest, len(symbols))
		batch, err := t.fetchBatch(ctx, symbols[start:end])
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, batch...)
	}
	return quotes, nil
}

func (t *TWSE) fetchBatch(ctx context.Context, symbols []string) ([]core.Quote, error) {
	channels := make([]string, 0, 2*len(symbols))
	for _, s := range symbols {
		code := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(s, ".TWO"), ".TW"))
		channels = append(channels, "tse_"+code+".tw", "otc_"+code+".tw")
	}

	q := url.Values{}
	q.Set("ex_ch", strings.Join(channels, "|"))
	q.Set("json", "1")
	q.Set("delay", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var jobj any
	if err := json.NewDecoder(resp.Body).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return parseQuotes(jobj, symbols)
}

// parseQuotes maps msgArray rows back onto the requested symbols.
func parseQuotes(jobj any, symbols []string) ([]core.Quote, error) {
	if code, err := lookupString("$.rtcode", jobj); err == nil && code != "0000" {
		msg, _ := lookupString("$.rtmessage", jobj)
		return nil, fmt.Errorf("twse error %s: %s", code, msg)
	}

	rows, err := jsonpath.Get("$.msgArray[*]", jobj)
	if err != nil {
		return nil, fmt.Errorf("parsing msgArray: %w", err)
	}
	list, _ := rows.([]any)

	wanted := make(map[string]string, len(symbols))
	for _, s := range symbols {
		wanted[strings.TrimSuffix(strings.TrimSuffix(s, ".TWO"), ".TW")] = s
	}

	var quotes []core.Quote
	for _, row := range list {
		code, err := lookupString("$.c", row)
		if err != nil {
			continue
		}
		symbol, ok := wanted[code]
		if !ok {
			continue
		}

		price := lastPrice(row)
		if price <= 0 {
			continue
		}
		name, _ := lookupString("$.n", row)

		q := core.Quote{
			Symbol:   symbol,
			Name:     name,
			Price:    price,
			Market:   core.MarketTW,
			Currency: core.CurrencyTWD,
			Source:   "twse",
			Time:     rowTime(row),
		}
		if prev := lookupFloat("$.y", row); prev > 0 {
			q.Change = price - prev
			q.ChangesPercentage = q.Change / prev * 100
		}
		quotes = append(quotes, q)
		delete(wanted, code)
	}
	return quotes, nil
}

// lastPrice returns the last trade, falling back to the best bid when no
// trade happened yet ("z" is "-").
func lastPrice(row any) float64 {
	if p := lookupFloat("$.z", row); p > 0 {
		return p
	}
	bids, err := lookupString("$.b", row)
	if err != nil {
		return 0
	}
	first, _, _ := strings.Cut(bids, "_")
	p, _ := strconv.ParseFloat(first, 64)
	return p
}

func rowTime(row any) time.Time {
	raw, err := lookupString("$.tlong", row)
	if err != nil {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func lookup(path string, obj any) (any, error) {
	jval, err := jsonpath.Get(path, obj)
	if err != nil {
		return nil, err
	}
	// jsonpath may wrap a single answer in a list
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("%s: no match", path)
		}
		jval = jlist[0]
	}
	return jval, nil
}

func lookupString(path string, obj any) (string, error) {
	jval, err := lookup(path, obj)
	if err != nil {
		return "", err
	}
	s, ok := jval.(string)
	if !ok {
		return "", fmt.Errorf("%s: not a string: %v", path, jval)
	}
	return s, nil
}

func lookupFloat(path string, obj any) float64 {
	s, err := lookupString(path, obj)
	if err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
