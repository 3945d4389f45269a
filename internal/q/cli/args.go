package cli

import "fmt"

// ExactArgs returns an ArgsFunc that validates that exactly n args are provided.
// turnsieve's four leaf subcommands all take exactly one positional arg (the
// transcript path), so this is the only arity validator in use.
func ExactArgs(n int) ArgsFunc {
	return func(args []string) error {
		if len(args) == n {
			return nil
		}
		return usageErrorf("expected %s, got %d", pluralArgs(n), len(args))
	}
}

func pluralArgs(n int) string {
	if n == 1 {
		return "1 arg"
	}
	return fmt.Sprintf("%d args", n)
}

