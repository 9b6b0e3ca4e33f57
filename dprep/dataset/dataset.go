package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"
)

// WriteOptions tune how a pair list is written.
type WriteOptions struct {
	// Indent pretty-prints the document.
	Indent bool
	// Perm is the file mode of the output; 0 means 0o644.
	Perm os.FileMode
}

const bufSize = 64 * 1024

// Write serializes ps to path as a JSON array of [source, target] arrays. The document
// is written to a temporary file in the destination directory and renamed into place,
// so a failed write never leaves a truncated file at path.
func Write(ctx context.Context, path string, ps []pairs.Pair, opts WriteOptions) error {
	if strings.TrimSpace(path) == "" {
		return common.InvalidConfigf("output path cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}
	if ps == nil {
		ps = []pairs.Pair{}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return common.WrapError(err, "write dataset %s", path)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return common.WrapError(err, "write dataset %s", path)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return common.WrapError(err, "write dataset %s", path)
	}

	bw := bufio.NewWriterSize(tmp, bufSize)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(ps); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return common.WrapError(err, "write dataset %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return common.WrapError(err, "write dataset %s", path)
	}
	return nil
}

// Read loads a pair list written by Write. Every element must have exactly two sides.
func Read(path string) ([]pairs.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.WrapError(err, "read dataset %s", path)
	}
	defer f.Close()

	var ps []pairs.Pair
	dec := json.NewDecoder(bufio.NewReaderSize(f, bufSize))
	if err := dec.Decode(&ps); err != nil {
		return nil, fmt.Errorf("%w: read dataset %s: %w", common.ErrInvalidInput, path, err)
	}
	if ps == nil {
		ps = []pairs.Pair{}
	}
	return ps, nil
}

// SplitPaths derives the train and validation file names that sit next to path,
// e.g. data.json -> data.train.json, data.validation.json.
func SplitPaths(path string) (train, validation string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".json"
	}
	return base + ".train" + ext, base + ".validation" + ext
}
