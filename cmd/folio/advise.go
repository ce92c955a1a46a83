package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/app"
	"github.com/newthinker/folio/internal/config"
)

var (
	adviseProfile string
	adviseRefresh bool
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Ask the configured LLM for commentary on a profile",
	RunE:  runAdvise,
}

func init() {
	adviseCmd.Flags().StringVarP(&adviseProfile, "profile", "p", "", "profile id (default: active profile)")
	adviseCmd.Flags().BoolVarP(&adviseRefresh, "refresh", "r", false, "fetch quotes and exchange rate first")
	rootCmd.AddCommand(adviseCmd)
}

func runAdvise(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, cfg *config.Config, log *zap.Logger) error {
		id, err := resolveProfile(a, adviseProfile)
		if err != nil {
			return err
		}
		if adviseRefresh {
			refresh(ctx, a, id, log)
		}

		adv, err := a.Advise(ctx, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, adv.Content)
		fmt.Fprintf(out, "\n-- %s, %d tokens\n", adv.Provider, adv.Usage.OutputTokens)
		return nil
	})
}
