package main

import (
	"context"
	"os"

	"github.com/codalotl/turnsieve/internal/cli"
	qcli "github.com/codalotl/turnsieve/internal/q/cli"
)

func main() {
	os.Exit(qcli.Run(context.Background(), cli.NewRoot(), qcli.Options{Args: os.Args[1:]}))
}
