package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/congo-pay/walletcore/internal/models"
)

// postCmd credits or debits a wallet.
type postCmd struct {
	withdraw  bool
	walletID  string
	amount    string
	reference string
}

func (c *postCmd) Name() string {
	if c.withdraw {
		return "withdraw"
	}
	return "deposit"
}

func (c *postCmd) Synopsis() string {
	if c.withdraw {
		return "debit available funds from a wallet"
	}
	return "credit funds to a wallet"
}

func (c *postCmd) Usage() string {
	return fmt.Sprintf(`%s -wallet <id> -amount <major units> [-reference <text>]

  Amounts are given in major units of the wallet currency, e.g. 12.50 for USD.
`, c.Name())
}

func (c *postCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.walletID, "wallet", "", "Wallet id (required)")
	f.StringVar(&c.amount, "amount", "", "Amount in major units (required)")
	f.StringVar(&c.reference, "reference", "", "Free-form reference stored on the ledger entry")
}

func (c *postCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.walletID == "" || c.amount == "" {
		fail("-wallet and -amount are required")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	w, err := s.core.Wallets.Get(ctx, c.walletID)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	minor, err := s.toMinor(w.Currency, c.amount)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	var entry models.LedgerEntry
	if c.withdraw {
		entry, err = s.core.Wallets.Withdraw(ctx, w.ID, minor, c.reference)
	} else {
		entry, err = s.core.Wallets.Deposit(ctx, w.ID, minor, c.reference)
	}
	if err != nil {
		fail("%s: %v", c.Name(), err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(s.out, "%s %s %s\n", entry.ID, entry.Type, s.format(entry.Currency, entry.Amount))
	return subcommands.ExitSuccess
}
