package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	qcli "github.com/codalotl/turnsieve/internal/q/cli"
)

func writeTranscript(t *testing.T, dir string) string {
	t.Helper()
	lines := []string{
		`{"type":"user","message":{"role":"user","content":"why is the deploy failing"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"checking logs in /app/deploy.log for a stack trace"}]}}`,
		`{"type":"user","message":{"role":"user","content":"found it, NullPointerException in OrderService.java line 42"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"fixed the null check in OrderService.java, redeploying now"}]}}`,
	}
	path := filepath.Join(dir, "conv.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func runRoot(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := qcli.Run(context.Background(), NewRoot(), qcli.Options{
		Args: args,
		Out:  &out,
		Err:  &errOut,
	})
	return code, out.String(), errOut.String()
}

func TestCompact_DedupMethodSucceeds(t *testing.T) {
	path := writeTranscript(t, t.TempDir())
	code, stdout, stderr := runRoot(t, []string{"compact", path, "--method=dedup", "--budget=100000"})
	require.Equal(t, 0, code, "stderr=%s", stderr)
	require.Contains(t, stdout, "budget=100000")
}

func TestCompact_UnknownMethodExitsWithDistinctCode(t *testing.T) {
	path := writeTranscript(t, t.TempDir())
	code, _, stderr := runRoot(t, []string{"compact", path, "--method=nonexistent"})
	require.Equal(t, ExitUnknownMethod, code)
	require.NotEmpty(t, stderr)
}

func TestEvalEntity_SetCoverReportsCoverage(t *testing.T) {
	path := writeTranscript(t, t.TempDir())
	code, stdout, stderr := runRoot(t, []string{"eval", "entity", path, "--method=setcover", "--budget=100000"})
	require.Equal(t, 0, code, "stderr=%s", stderr)
	require.Contains(t, stdout, "coverage=")
}

func TestDiff_ComparesTwoMethods(t *testing.T) {
	path := writeTranscript(t, t.TempDir())
	code, stdout, stderr := runRoot(t, []string{"diff", path, "--method-a=setcover", "--method-b=dedup", "--budget=100000"})
	require.Equal(t, 0, code, "stderr=%s", stderr)
	require.Contains(t, stdout, "--- setcover")
	require.Contains(t, stdout, "+++ dedup")
}

func TestRun_MissingFileArgIsUsageError(t *testing.T) {
	code, _, stderr := runRoot(t, []string{"compact"})
	require.Equal(t, 2, code)
	require.NotEmpty(t, stderr)
}
