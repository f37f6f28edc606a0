package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type balanceCmd struct {
	walletID string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show total and available balance of a wallet" }
func (*balanceCmd) Usage() string {
	return `balance -wallet <id>
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.walletID, "wallet", "", "Wallet id (required)")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.walletID == "" {
		fail("-wallet is required")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	b, err := s.core.GetWalletBalance(ctx, c.walletID)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(s.out, "balance:   %s\n", s.format(b.Currency, b.Balance))
	fmt.Fprintf(s.out, "available: %s\n", s.format(b.Currency, b.AvailableBalance))
	fmt.Fprintf(s.out, "held:      %s\n", s.format(b.Currency, b.Balance-b.AvailableBalance))
	return subcommands.ExitSuccess
}
