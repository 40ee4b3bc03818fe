package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveGGUF turns the llama model setting into a model file. A path to a
// .gguf file is returned as is; a directory yields its first *.gguf file in
// name order. A leading '~' is expanded to the home directory.
func ResolveGGUF(model string) (string, error) {
	p := strings.TrimSpace(model)
	if p == "" {
		return "", errors.New("llama: model path is empty")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("llama: model %s: %w", p, err)
	}
	if !fi.IsDir() {
		if !isGGUF(p) {
			return "", fmt.Errorf("llama: %s is not a .gguf file", p)
		}
		return p, nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return "", fmt.Errorf("llama: read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isGGUF(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("llama: no .gguf files in %s", p)
	}
	sort.Strings(names)
	return filepath.Join(p, names[0]), nil
}

func isGGUF(name string) bool { return strings.HasSuffix(strings.ToLower(name), ".gguf") }
