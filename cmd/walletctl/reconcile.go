package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/congo-pay/walletcore/internal/wallet"
)

type reconcileCmd struct {
	walletID string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "compare cached balances with the ledger" }
func (*reconcileCmd) Usage() string {
	return `reconcile [-wallet <id>]

  Recomputes each wallet's total from its ledger and its held amount from
  pending reservations, and lists every wallet whose cached balances differ.
  Exits with status 1 when drift is found.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.walletID, "wallet", "", "Check only this wallet")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	var drifted []wallet.Drift
	if c.walletID != "" {
		d, err := s.core.Wallets.Reconcile(ctx, c.walletID)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		if !d.OK() {
			drifted = append(drifted, d)
		}
	} else {
		drifted, err = s.core.Wallets.ReconcileAll(ctx)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
	}

	if len(drifted) == 0 {
		fmt.Fprintln(s.out, "no drift")
		return subcommands.ExitSuccess
	}
	for _, d := range drifted {
		fmt.Fprintf(s.out, "%s total cached=%d ledger=%d held cached=%d pending=%d\n",
			d.WalletID, d.CachedTotal, d.LedgerTotal, d.CachedHeld, d.PendingHolds)
	}
	return subcommands.ExitFailure
}
