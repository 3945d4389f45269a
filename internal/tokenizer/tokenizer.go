// Package tokenizer counts tokens against a fixed reference vocabulary, the
// same one a small embedding/rerank model would actually see, so that
// downstream budgets stay meaningful across methods and runs.
package tokenizer

import (
	"sync"

	tiktoken "github.com/tiktoken-go/tokenizer"

	"github.com/codalotl/turnsieve/internal/q/health"
)

var (
	once sync.Once
	enc  tiktoken.Codec
	err  error
)

func getCodec() (tiktoken.Codec, error) {
	once.Do(func() {
		enc, err = tiktoken.Get(tiktoken.O200kBase)
	})
	return enc, err
}

// ErrUnavailable wraps a failure to load the reference tokenizer
//.
var ErrUnavailable = health.NewErr("tokenizer unavailable")

// Count returns the number of tokens in s. Count("") is always 0.
//
// Count is deterministic for a given s and panics only if the reference
// vocabulary itself cannot be loaded (a packaging defect, not a runtime
// condition callers should need to handle per-call) — callers that need to
// fail gracefully at startup should call Warm first.
func Count(s string) int {
	if s == "" {
		return 0
	}
	codec, loadErr := getCodec()
	if loadErr != nil {
		panic(health.Wrap("tokenizer unavailable", ErrUnavailable, "cause", loadErr))
	}
	count, countErr := codec.Count(s)
	if countErr != nil {
		// Fall back to a coarse byte-length estimate rather than fail a
		// scoring pass over one bad turn.
		return len(s) / 4
	}
	return count
}

// Warm loads the reference vocabulary eagerly, surfacing
// ErrUnavailable at a controlled point (e.g. CLI startup) rather than on
// the first Count call deep in a scoring pass.
func Warm() error {
	_, loadErr := getCodec()
	if loadErr != nil {
		return health.Wrap("tokenizer unavailable", ErrUnavailable, "cause", loadErr)
	}
	return nil
}
