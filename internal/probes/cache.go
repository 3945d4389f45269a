package probes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codalotl/turnsieve/internal/q/health"
)

// Version is the schema version embedded in cache filenames; bump it when
// the Probe/Set shape changes in a way that should invalidate old caches.
const Version = "1"

// ErrCacheCorrupt is returned when a cache file exists but cannot be
// decoded; callers should treat this as a cache miss and warn, not fail
// the run.
var ErrCacheCorrupt = health.NewErr("probe cache file is corrupt")

// ConvHash fingerprints a conversation source file for cache keying,
// mirroring the Python original: file size, split ratio (4 decimal
// places), and the first and last 4KB of the file, sha256'd and truncated
// to 16 hex characters. Reading only the head and tail keeps this cheap on
// large conversation logs while still changing whenever the interior is
// edited in a way that perturbs length.
func ConvHash(path string, splitRatio float64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", health.Wrap("open conversation file", err, "path", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", health.Wrap("stat conversation file", err, "path", path)
	}
	size := info.Size()

	const window = 4096
	head := make([]byte, window)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", health.Wrap("read conversation file head", err, "path", path)
	}
	head = head[:n]

	tail := head
	if size > window {
		tailStart := size - window
		if tailStart < int64(n) {
			tailStart = int64(n)
		}
		tailBuf := make([]byte, size-tailStart)
		if _, err := f.ReadAt(tailBuf, tailStart); err != nil && err != io.EOF {
			return "", health.Wrap("read conversation file tail", err, "path", path)
		}
		tail = tailBuf
	}

	h := sha256.New()
	fmt.Fprintf(h, "%d|%.4f|", size, splitRatio)
	h.Write(head)
	h.Write(tail)
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:16], nil
}

// CachePath returns the flat cache filename for a (conversation hash,
// version) pair, matching the original's `probes_{hash16}_v{version}.json`
// pattern. Unlike the content-addressable store's
// sharded namespace/hash[:2]/hash[2:] layout, probe caches are few enough
// in number that a flat directory is simpler and matches the Python tool's
// behavior.
func CachePath(dir, convHash, version string) string {
	return filepath.Join(dir, fmt.Sprintf("probes_%s_v%s.json", convHash, version))
}

type cacheFile struct {
	ConvHash   string  `json:"conv_hash"`
	SplitRatio float64 `json:"split_ratio"`
	Version    string  `json:"version"`
	Probes     []Probe `json:"probes"`
}

// Load reads a cached ProbeSet for (convHash, splitRatio, version) from
// dir. A missing file is reported via ok=false with a nil error — absence
// is the expected steady state before probes are ever generated for a
// conversation, not a failure. A file that exists but fails to parse also
// comes back with ok=false, but err wraps ErrCacheCorrupt so the caller can
// log a warning; callers must still treat it as a cache miss rather than
// aborting the run.
func Load(dir, convHash string, splitRatio float64, version string) (set Set, ok bool, err error) {
	path := CachePath(dir, convHash, version)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, false, nil
		}
		return Set{}, false, health.Wrap("read probe cache", err, "path", path)
	}

	var cf cacheFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return Set{}, false, health.Wrap("probe cache unreadable, treating as absent", ErrCacheCorrupt, "path", path, "parse_err", err.Error())
	}

	return Set{
		Probes:     cf.Probes,
		ConvHash:   cf.ConvHash,
		SplitRatio: cf.SplitRatio,
		Version:    cf.Version,
	}, true, nil
}

// Save writes set to dir using an atomic temp-file-then-rename, the same
// idiom the content-addressable store uses for crash-safe writes, even
// though the original tool wrote probe caches directly.
func Save(dir string, set Set) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return health.Wrap("create probe cache dir", err, "dir", dir)
	}

	cf := cacheFile{
		ConvHash:   set.ConvHash,
		SplitRatio: set.SplitRatio,
		Version:    set.Version,
		Probes:     set.Probes,
	}
	out, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return health.Wrap("marshal probe set", err)
	}

	finalPath := CachePath(dir, set.ConvHash, set.Version)
	tmp, err := os.CreateTemp(dir, "probes-tmp-*")
	if err != nil {
		return health.Wrap("create probe cache temp file", err, "dir", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(out); err != nil {
		return health.Wrap("write probe cache temp file", err, "path", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return health.Wrap("close probe cache temp file", err, "path", tmpName)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		return health.Wrap("rename probe cache into place", err, "from", tmpName, "to", finalPath)
	}
	return nil
}
