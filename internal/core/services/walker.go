package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/pathmatch"
)

// walkWorkspace returns the slash-separated relative paths of every regular
// file below root/startRel accepted by matcher, sorted. Excluded directories
// are not descended into. Symlinks are ignored.
func walkWorkspace(
	ctx context.Context, root, startRel string, matcher *pathmatch.Matcher, log *logger.Logger,
) ([]string, error) {
	start := root
	if startRel != "" {
		start = filepath.Join(root, filepath.FromSlash(startRel))
	}

	info, err := os.Stat(start)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", start, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, start)
	}

	var files []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == start {
				return walkErr
			}
			log.Warn("Skipping %s: %v", p, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p != start && matcher.ExcludesDir(rel) {
				log.Debug("Skipping excluded directory %s", rel)
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// resolveWorkspaceRoot returns the cleaned absolute form of root.
func resolveWorkspaceRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: workspace path is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return filepath.Clean(abs), nil
}

// relativeTo returns p relative to root in slash form. p may be absolute or
// already relative to root. Paths outside root are rejected.
func relativeTo(root, p string) (abs, rel string, err error) {
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Join(root, p)
	}
	r, err := filepath.Rel(root, abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s is outside workspace %s", domain.ErrInvalidInput, p, root)
	}
	return abs, filepath.ToSlash(r), nil
}

// normaliseFolder cleans a relative folder argument. The workspace root
// is "".
func normaliseFolder(folder string) (string, error) {
	folder = strings.Trim(filepath.ToSlash(strings.TrimSpace(folder)), "/")
	if folder == "" || folder == "." {
		return "", nil
	}
	folder = path.Clean(folder)
	if folder == ".." || strings.HasPrefix(folder, "../") {
		return "", fmt.Errorf("%w: folder %q is outside the workspace", domain.ErrInvalidInput, folder)
	}
	return folder, nil
}

var errNotRegular = errors.New("not a regular file")
