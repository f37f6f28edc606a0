package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/congo-pay/walletcore/internal/ledger"
)

const dateLayout = "2006-01-02"

type historyCmd struct {
	walletID string
	from     string
	to       string
	daily    bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print the ledger statement of a wallet" }
func (*historyCmd) Usage() string {
	return `history -wallet <id> [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-daily]

  Prints the ledger entries in [from, to). Without -from the statement starts
  at wallet creation; without -to it runs through today. -daily prints the
  end-of-day balances instead of individual entries.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.walletID, "wallet", "", "Wallet id (required)")
	f.StringVar(&c.from, "from", "", "First day, inclusive")
	f.StringVar(&c.to, "to", "", "Last day, exclusive")
	f.BoolVar(&c.daily, "daily", false, "Print the daily rollup")
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, v, time.UTC)
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.walletID == "" {
		fail("-wallet is required")
		return subcommands.ExitUsageError
	}
	from, err := parseDay(c.from)
	if err != nil {
		fail("invalid -from: %v", err)
		return subcommands.ExitUsageError
	}
	to, err := parseDay(c.to)
	if err != nil {
		fail("invalid -to: %v", err)
		return subcommands.ExitUsageError
	}

	s, err := openSession(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	h, err := s.core.GetBalanceHistory(ctx, c.walletID, ledger.TimeRange{From: from, To: to})
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	if c.daily {
		fmt.Fprintln(tw, "DATE\tBALANCE\tAVAILABLE\tENTRIES")
		for _, d := range h.Days {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", d.Date.Format(dateLayout),
				s.format(h.Currency, d.Balance), s.format(h.Currency, d.AvailableBalance), d.TransactionCount)
		}
		_ = tw.Flush()
		return subcommands.ExitSuccess
	}

	fmt.Fprintf(s.out, "opening balance: %s\n", s.format(h.Currency, h.OpeningBalance))
	fmt.Fprintln(tw, "#\tTIME\tTYPE\tAMOUNT\tREFERENCE")
	for _, e := range h.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Sequence, e.CreatedAt.UTC().Format(time.RFC3339),
			e.Type, s.format(e.Currency, e.Amount), e.Reference)
	}
	_ = tw.Flush()
	return subcommands.ExitSuccess
}
