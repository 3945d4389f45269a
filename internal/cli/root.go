// Package cli wires turnsieve's commands onto the internal/q/cli
// command-tree engine: one Command per verb, flags bound to local
// variables at construction time, errors surfaced through health.Wrap and
// mapped to process exit codes by q/cli's ExitCoder contract.
package cli

import (
	"github.com/codalotl/turnsieve/internal/q/cli"
)

// Exit codes beyond q/cli's built-in 0/1/2, one per named failure class
// so scripts invoking turnsieve can branch on cause.
const (
	ExitUnknownMethod         = 3
	ExitInputShape            = 4
	ExitEntityExtractionEmpty = 5
	ExitRemoteScorerError     = 6
)

// NewRoot builds the turnsieve command tree.
func NewRoot() *cli.Command {
	root := &cli.Command{
		Name:  "turnsieve",
		Short: "Extractive conversation compaction for coding-assistant transcripts",
	}

	root.AddCommand(
		newCompactCommand(),
		newEvalCommand(),
		newDiffCommand(),
	)
	return root
}
