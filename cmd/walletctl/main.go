// Command walletctl is the operator CLI for the wallet core.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&createCmd{}, "wallets")
	c.Register(&postCmd{withdraw: false}, "wallets")
	c.Register(&postCmd{withdraw: true}, "wallets")
	c.Register(&balanceCmd{}, "wallets")
	c.Register(&historyCmd{}, "wallets")

	c.Register(&reconcileCmd{}, "maintenance")
	c.Register(&sweepCmd{}, "maintenance")
}
