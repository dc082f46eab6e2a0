package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/michaelpento.lv/stablearb/cmd/bot"
	"github.com/michaelpento.lv/stablearb/config"
	"github.com/michaelpento.lv/stablearb/types"
	"github.com/michaelpento.lv/stablearb/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single arbitrage cycle and print its report",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load configuration", zap.Error(err))
		}

		b, err := bot.New(cmd.Context(), cfg, log)
		if err != nil {
			log.Fatal("Failed to create engine", zap.Error(err))
		}
		defer b.Stop()

		report := b.Cycle().RunCycle(cmd.Context())
		printReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func printReport(out io.Writer, r types.CycleReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "cycle\t%d\t(%s)\n", r.Cycle, r.Duration)

	chains := make([]types.Chain, 0, len(r.Balances))
	for chain := range r.Balances {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })

	for _, chain := range chains {
		if p, ok := r.Prices[chain]; ok {
			fmt.Fprintf(w, "price %s\t%.6f base->quote\t%.6f quote->base\n", chain, p.BaseToQuote, p.QuoteToBase)
		} else {
			fmt.Fprintf(w, "price %s\tunavailable\t\n", chain)
		}
	}
	// a nil map means the cycle stopped before pricing gas
	if r.GasCostUSD != nil {
		for _, chain := range chains {
			if cost, ok := r.GasCostUSD[chain]; ok {
				fmt.Fprintf(w, "gas %s\t$%.4f\t\n", chain, cost)
			} else {
				fmt.Fprintf(w, "gas %s\tunavailable\t\n", chain)
			}
		}
	}

	if r.Decision != nil {
		fmt.Fprintf(w, "target\t%s\t\n", r.Target)
		if r.Decision.Execute {
			fmt.Fprintf(w, "decision\texecute %.6f %s on %s, sell on %s\texpected net $%.4f\n",
				r.Decision.Amount, r.Decision.StartingAsset, r.Decision.BuyChain, r.Decision.SellChain,
				r.Decision.ExpectedNetProfitUSD)
		} else {
			fmt.Fprintf(w, "decision\tno opportunity: %s\t\n", r.Decision.Reason)
		}
	}
	if r.Trade != nil {
		fmt.Fprintf(w, "trade\t%s\tnet $%.4f\n", r.Trade.ID, r.Trade.NetProfitUSD)
	}
	if r.Err != nil {
		fmt.Fprintf(w, "error\t%v\t\n", r.Err)
	}

	for _, chain := range chains {
		b := r.Balances[chain]
		fmt.Fprintf(w, "balance %s\t%.6f base\t%.6f quote\n", chain, b.Base, b.Quote)
	}
	fmt.Fprintf(w, "stats\t%d trades, %d profitable\tprofit $%.4f, portfolio $%.2f, win rate %.2f\n",
		r.Stats.TotalTrades, r.Stats.ProfitableTrades, r.Stats.TotalProfitUSD,
		r.Stats.TotalPortfolioValueUSD, r.Stats.WinRate)
}
