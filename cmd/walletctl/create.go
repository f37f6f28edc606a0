package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/congo-pay/walletcore/internal/wallet"
)

type createCmd struct {
	owner    string
	currency string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create an empty wallet" }
func (*createCmd) Usage() string {
	return `create -owner <owner-id> [-currency <code>]

  Creates a wallet with a zero balance and prints its id.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner identifier (required)")
	f.StringVar(&c.currency, "currency", wallet.DefaultCurrency, "ISO 4217 currency code")
}

func (c *createCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fail("-owner is required")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	w, err := s.core.Wallets.Create(ctx, wallet.CreateInput{OwnerID: c.owner, Currency: c.currency})
	if err != nil {
		fail("create wallet: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(s.out, w.ID)
	return subcommands.ExitSuccess
}
