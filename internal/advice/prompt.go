package advice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/format"
	"github.com/newthinker/folio/internal/portfolio"
)

const disclaimer = "The above is a rule-based analysis generated by the system and does not constitute investment advice."

var riskLabels = map[core.RiskLevel]string{
	core.RiskConservative: "Conservative",
	core.RiskBalanced:     "Balanced",
	core.RiskAggressive:   "Aggressive",
}

func riskLabel(r core.RiskLevel) string {
	if l, ok := riskLabels[r]; ok {
		return l
	}
	return string(r)
}

// marketContext describes the market the advisor should keep in mind.
func marketContext(p portfolio.PortfolioPayload) string {
	switch p.Market {
	case core.MarketTW:
		return "This is a Taiwan equity portfolio priced in TWD. Consider the characteristics and sector structure of the Taiwan stock market."
	case core.MarketMixed:
		return fmt.Sprintf("This is a mixed portfolio holding both US and Taiwan equities. All market values have been converted to %s at the current exchange rate. Consider the characteristics of both the US and the Taiwan stock markets.", p.BaseCurrency)
	default:
		return "This is a US equity portfolio priced in USD. Consider the characteristics of the US stock market."
	}
}

// SystemPrompt returns the advisor instructions for p, answering in
// language.
func SystemPrompt(p portfolio.PortfolioPayload, language string) string {
	var sb strings.Builder
	sb.WriteString("You are a careful, conservative portfolio advisor")
	if language != "" {
		fmt.Fprintf(&sb, " who always answers in %s", language)
	}
	sb.WriteString(". ")
	sb.WriteString(marketContext(p))
	if p.HasBonds() {
		sb.WriteString(" The portfolio also holds bonds, quoted per 100 of face value; weigh interest-rate and credit risk alongside equity risk.")
	}
	sb.WriteString("\n\nBased on the user's holdings, recommend for every position whether to add, reduce or hold, with a short reason, and give an overall reminder about concentration and risk. Never make any statement that guarantees a profit. End with this sentence: \"")
	sb.WriteString(disclaimer)
	sb.WriteString("\"\n\nReply in this order:\n")
	sb.WriteString("1. A brief assessment of the overall portfolio\n")
	sb.WriteString("2. An add / reduce / hold recommendation with a reason for each holding\n")
	sb.WriteString("3. Risk and concentration reminders\n")
	sb.WriteString("4. The disclaimer")
	return sb.String()
}

// UserPrompt renders the portfolio as the text the advisor reads.
func UserPrompt(p portfolio.PortfolioPayload) string {
	cur := p.BaseCurrency
	var sb strings.Builder
	fmt.Fprintf(&sb, "Portfolio name: %s\n", p.ProfileName)
	fmt.Fprintf(&sb, "Market: %s\n", p.Market.Label())
	fmt.Fprintf(&sb, "Currency: %s\n", cur)
	fmt.Fprintf(&sb, "Risk preference: %s\n", riskLabel(p.RiskLevel))
	fmt.Fprintf(&sb, "Total market value: %s\n", format.Money(p.TotalMarketValue, cur))
	fmt.Fprintf(&sb, "Total cost: %s\n", format.Money(p.TotalCost, cur))
	fmt.Fprintf(&sb, "Total P&L: %s (%s)\n",
		format.SignedMoney(p.TotalUnrealizedPnL, cur),
		format.Percent(p.TotalUnrealizedPnLPercent(), format.DefaultDecimals))
	fmt.Fprintf(&sb, "Top-3 concentration: %s\n", format.Ratio(p.Concentration, format.DefaultDecimals))

	if p.HasBonds() && p.AssetClassBreakdown != nil {
		b := p.AssetClassBreakdown
		fmt.Fprintf(&sb, "Asset class mix: equities %s, bonds %s (corporate %s, US treasury %s)\n",
			format.Ratio(b.Equity.Weight, format.DefaultDecimals),
			format.Ratio(b.Bond.Weight, format.DefaultDecimals),
			format.Ratio(b.Bond.Corp.Weight, format.DefaultDecimals),
			format.Ratio(b.Bond.UST.Weight, format.DefaultDecimals))
	}

	sb.WriteString("\nHoldings:\n")
	for i, h := range p.Holdings {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(holdingLine(h, cur, p.Market == core.MarketMixed))
	}
	return sb.String()
}

// holdingLine renders one holding. Cost and price stay in the holding's
// trading currency, so on mixed profiles they are printed without a symbol.
func holdingLine(h portfolio.HoldingPayload, cur core.Currency, mixed bool) string {
	qty := strconv.FormatFloat(h.Quantity, 'f', -1, 64)
	tail := fmt.Sprintf("value %s, P&L %s (%s), weight %s",
		format.Money(h.MarketValue, cur),
		format.SignedMoney(h.UnrealizedPnL, cur),
		format.Percent(h.UnrealizedPnLPercent, format.DefaultDecimals),
		format.Ratio(h.Weight, format.DefaultDecimals))

	if h.AssetClass != core.AssetBond {
		cost, price := format.Money(h.CostBasis, cur), format.Money(h.CurrentPrice, cur)
		if mixed {
			cost = strconv.FormatFloat(h.CostBasis, 'f', 2, 64) + " (trading currency)"
			price = strconv.FormatFloat(h.CurrentPrice, 'f', 2, 64) + " (trading currency)"
		}
		return fmt.Sprintf("- %s (%s): %s shares, cost %s, price %s, %s",
			h.Symbol, h.Name, qty, cost, price, tail)
	}

	line := fmt.Sprintf("- %s (%s): %s, face value %s, cost %s per 100, price %s per 100, %s",
		h.Symbol, h.Name, h.BondCategory.Label(), qty,
		strconv.FormatFloat(h.CostBasis, 'f', 2, 64),
		strconv.FormatFloat(h.CurrentPrice, 'f', 2, 64),
		tail)
	if h.CouponRate != nil {
		line += fmt.Sprintf(", coupon %s%%", strconv.FormatFloat(*h.CouponRate, 'f', -1, 64))
	}
	if h.MaturityDate != "" {
		line += ", matures " + h.MaturityDate
	}
	return line
}
