package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/collector"
	"github.com/newthinker/folio/internal/core"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches stock symbols like AAPL, BRK.B, 2330, 00878, TWD=X
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^=\-]{1,12}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance collector
type Yahoo struct {
	client  *http.Client
	config  collector.Config
	baseURL string
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) SupportedMarkets() []core.HoldingMarket {
	return []core.HoldingMarket{core.HoldingMarketUS, core.HoldingMarketTW}
}

func (y *Yahoo) Init(cfg collector.Config) error {
	y.config = cfg
	if cfg.Timeout > 0 {
		y.client.Timeout = cfg.Timeout
	}
	if cfg.BaseURL != "" {
		y.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string, market core.HoldingMarket) string {
	// Taiwan listings: 2330 -> 2330.TW, OTC listings are given as 6488.TWO
	if market == core.HoldingMarketTW && !strings.Contains(symbol, ".") {
		return symbol + ".TW"
	}
	return symbol
}

// FetchQuote fetches real-time quote
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string, market core.HoldingMarket) (*core.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	meta, err := y.FetchMeta(ctx, y.toYahooSymbol(symbol, market))
	if err != nil {
		return nil, err
	}

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}

	q := &core.Quote{
		Symbol:   symbol,
		Name:     name,
		Market:   y.detectMarket(meta, market),
		Currency: core.Currency(strings.ToUpper(meta.Currency)),
		Price:    meta.RegularMarketPrice,
		Time:     time.Unix(int64(meta.RegularMarketTime), 0),
		Source:   "yahoo",
	}
	if !q.Currency.IsValid() {
		q.Currency = core.Market(market).DefaultCurrency()
	}
	if prev := meta.previousClose(); prev > 0 {
		q.Change = meta.RegularMarketPrice - prev
		q.ChangesPercentage = q.Change / prev * 100
	}
	return q, nil
}

// FetchMeta fetches the chart metadata of a symbol already spelled the way
// Yahoo expects it, e.g. "2330.TW" or "TWD=X".
func (y *Yahoo) FetchMeta(ctx context.Context, yahooSymbol string) (*ChartMeta, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", y.baseURL, yahooSymbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; folio)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", yahooSymbol)
	}

	meta := result.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("no price for symbol: %s", yahooSymbol)
	}
	return &meta, nil
}

func (y *Yahoo) detectMarket(meta *ChartMeta, requested core.HoldingMarket) core.Market {
	switch {
	case strings.EqualFold(meta.Currency, "TWD"),
		strings.HasSuffix(meta.Symbol, ".TW"),
		strings.HasSuffix(meta.Symbol, ".TWO"):
		return core.MarketTW
	case strings.EqualFold(meta.Currency, "USD"):
		return core.MarketUS
	}
	return core.Market(requested)
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta      ChartMeta `json:"meta"`
	Timestamp []int     `json:"timestamp"`
}

// ChartMeta is the metadata block of a Yahoo chart response.
type ChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ShortName          string  `json:"shortName"`
	LongName           string  `json:"longName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int     `json:"regularMarketTime"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	PreviousClose      float64 `json:"previousClose"`
}

func (m ChartMeta) previousClose() float64 {
	if m.PreviousClose > 0 {
		return m.PreviousClose
	}
	return m.ChartPreviousClose
}
