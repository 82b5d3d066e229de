package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/ethmpt/cli/db"
	"github.com/nspcc-dev/ethmpt/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "ethmpt\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an ethmpt instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "ethmpt"
	ctl.Version = config.Version
	ctl.Usage = "Ethereum Merkle-Patricia trie tool"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, db.NewCommands()...)
	return ctl
}
