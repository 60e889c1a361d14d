package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Alisasanian/PDFsorter/constants"
)

// DirStats counts what a listing saw.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Hidden  uint32
}

// List returns the sorted PDFs directly inside dir whose stem carries the stage marker
// suffix. Sub-directories and hidden files are skipped.
func List(ctx context.Context, dir, suffix string) ([]string, DirStats, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, DirStats{}, errors.New("staging dir is required")
	}

	var files []string
	var stats DirStats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		stats.Scanned++
		if isHidden(path) {
			stats.Hidden++
			return nil
		}
		if !constants.IsPDFExt(filepath.Ext(path)) || !HasSuffix(path, suffix) {
			return nil
		}
		stats.Matched++
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, stats, nil
}

// EnsureDirs creates every directory in dirs.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Usage is the size of a staging directory.
type Usage struct {
	Files int
	Bytes int64
}

func (u Usage) String() string {
	return fmt.Sprintf("%d files, %s", u.Files, humanize.Bytes(uint64(u.Bytes)))
}

// DirUsage sums the sizes of regular files below dir.
func DirUsage(dir string) (Usage, error) {
	var u Usage
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Files++
		u.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("usage %s: %w", dir, err)
	}
	return u, nil
}

// FilesUsage sums the sizes of the given files.
func FilesUsage(paths []string) Usage {
	var u Usage
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			u.Files++
			u.Bytes += info.Size()
		}
	}
	return u
}

// Reduction formats how much smaller after is than before, e.g. "98.7%".
func Reduction(before, after Usage) string {
	if before.Bytes <= 0 {
		return "n/a"
	}
	return humanize.FtoaWithDigits(100*(1-float64(after.Bytes)/float64(before.Bytes)), 1) + "%"
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
