package migrate

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadColumnsFile reads a keep-list from a newline-delimited text file:
// one column name per line, blank lines ignored.
func ReadColumnsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns file: %w", err)
	}
	defer f.Close()

	var columns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		columns = append(columns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns file: %w", err)
	}
	return columns, nil
}
