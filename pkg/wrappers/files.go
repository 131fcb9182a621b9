package wrappers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/user/dockscan/pkg/checks/compose"
)

// NotFoundError reports a scan input that does not exist.
type NotFoundError struct {
	Kind string // "Dockerfile" or "Compose file"
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// ParseError wraps a YAML syntax error in a Compose file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func readInput(kind, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Kind: kind, Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", kind, path, err)
	}
	return data, nil
}

// LoadDockerfile returns the lines of a Dockerfile with trailing whitespace
// removed. A final newline does not produce an empty last line.
func LoadDockerfile(path string) ([]string, error) {
	data, err := readInput("Dockerfile", path)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(data)), nil
}

// SplitLines splits text on "\n" and strips trailing whitespace, "\r" included.
func SplitLines(text string) []string {
	lines := make([]string, 0)
	if text == "" {
		return lines
	}
	text = strings.TrimSuffix(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimRight(line, " \t\r\v\f"))
	}
	return lines
}

// LoadCompose parses a Compose file. An empty document yields a manifest
// with no services.
func LoadCompose(path string) (*compose.Manifest, error) {
	data, err := readInput("Compose file", path)
	if err != nil {
		return nil, err
	}
	m, err := compose.ParseManifest(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}
