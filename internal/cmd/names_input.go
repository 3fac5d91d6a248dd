package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/marklens/marklens/internal/errors"
)

// resolveNames gathers the names to screen from positional arguments or a
// names file ("-" reads stdin). Lines are kept verbatim apart from
// whitespace trimming: names are usually Persian and may carry a
// parenthesised translation.
func resolveNames(positional []string, namesFile string) ([]string, error) {
	trimmed := strings.TrimSpace(namesFile)
	if trimmed != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot combine positional names with --names-file")
		}
		return readNamesFile(trimmed)
	}

	names := make([]string, 0, len(positional))
	for _, raw := range positional {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one name is required")
	}
	return names, nil
}

// readNamesFile reads one name per line, skipping blanks and # comments. A
// failure to read the file is fatal for the run before any browser work
// starts.
func readNamesFile(path string) ([]string, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, &apperrors.FileReadError{Path: path, Err: err}
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}

	names := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		names = append(names, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, &apperrors.FileReadError{Path: path, Err: err}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no names found in %s", path)
	}
	return names, nil
}
