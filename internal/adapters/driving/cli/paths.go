package cli

import (
	"fmt"
	"path/filepath"
)

// resolvePath turns a command line path into an absolute path, defaulting
// to the current directory.
func resolvePath(args []string) (string, error) {
	p := "."
	if len(args) > 0 && args[0] != "" {
		p = args[0]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}
