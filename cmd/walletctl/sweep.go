package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type sweepCmd struct{}

func (*sweepCmd) Name() string     { return "sweep" }
func (*sweepCmd) Synopsis() string { return "run one expiry sweep now" }
func (*sweepCmd) Usage() string {
	return `sweep

  Marks expired rate locks and releases the pending reservations that
  depend on them, exactly like one cycle of the walletd reaper.
`
}

func (*sweepCmd) SetFlags(*flag.FlagSet) {}

func (*sweepCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	res, err := s.core.Reaper.Sweep(ctx)
	fmt.Fprintf(s.out, "expired locks: %d\nreleased: %d\nskipped: %d\n", len(res.ExpiredLocks), res.Released, res.Skipped)
	if err != nil {
		fail("sweep: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
