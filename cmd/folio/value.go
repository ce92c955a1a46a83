package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/app"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/format"
	"github.com/newthinker/folio/internal/portfolio"
)

var (
	valueProfile string
	valueRefresh bool
)

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Print the valuation of a profile",
	RunE:  runValue,
}

func init() {
	valueCmd.Flags().StringVarP(&valueProfile, "profile", "p", "", "profile id (default: active profile)")
	valueCmd.Flags().BoolVarP(&valueRefresh, "refresh", "r", false, "fetch quotes and exchange rate first")
	rootCmd.AddCommand(valueCmd)
}

func runValue(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, cfg *config.Config, log *zap.Logger) error {
		id, err := resolveProfile(a, valueProfile)
		if err != nil {
			return err
		}
		if valueRefresh {
			refresh(ctx, a, id, log)
		}

		snap, err := a.Valuate(ctx, id)
		if err != nil {
			return err
		}
		return printValuation(os.Stdout, snap)
	})
}

// printValuation writes a holdings table followed by the summary. Prices
// are shown in the trading currency, values in the base currency.
func printValuation(out io.Writer, snap *portfolio.Snapshot) error {
	p := snap.Profile
	base := p.EffectiveBaseCurrency()
	s := snap.Summary

	fmt.Fprintf(out, "%s (%s, %s, %s)\n\n", p.Name, p.EffectiveMarket(), base, p.RiskLevel)

	if len(snap.Metrics) == 0 {
		fmt.Fprintln(out, "No holdings.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tQTY\tPRICE\tMKT VALUE\tWEIGHT\tP&L\tP&L %\t")
	for _, m := range snap.Metrics {
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\t%s\t%s\t\n",
			m.Symbol,
			m.Name,
			m.Quantity,
			format.Money(m.CurrentPrice, m.OriginalCurrency),
			format.Money(m.MarketValue, base),
			format.Ratio(m.Weight, 1),
			format.SignedMoney(m.UnrealizedPnL, base),
			format.Percent(m.UnrealizedPnLPercent, 2),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Market value:   %s\n", format.Money(s.TotalMarketValue, base))
	fmt.Fprintf(out, "Cost:           %s\n", format.Money(s.TotalCost, base))
	fmt.Fprintf(out, "Unrealized P&L: %s (%s)\n",
		format.SignedMoney(s.TotalUnrealizedPnL, base),
		format.Percent(s.TotalUnrealizedPnLPercent, 2))
	fmt.Fprintf(out, "Concentration:  %s\n", format.Ratio(s.Concentration, 1))
	if s.ExchangeRate != nil {
		fmt.Fprintf(out, "USD/TWD:        %.2f\n", *s.ExchangeRate)
	}
	printBreakdown(out, "US", s.USBreakdown, core.CurrencyUSD)
	printBreakdown(out, "TW", s.TWBreakdown, core.CurrencyTWD)

	bond := s.AssetClassBreakdown.Bond
	if bond.TotalMarketValue > 0 {
		fmt.Fprintf(out, "Bonds:          %s (%s)\n", format.Money(bond.TotalMarketValue, base), format.Ratio(bond.Weight, 1))
	}
	return nil
}

func printBreakdown(out io.Writer, label string, b *portfolio.MarketBreakdown, cur core.Currency) {
	if b == nil {
		return
	}
	fmt.Fprintf(out, "%s holdings:    %s (P&L %s)\n", label, format.Money(b.MarketValue, cur), format.SignedMoney(b.UnrealizedPnL, cur))
}
