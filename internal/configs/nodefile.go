package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadNodeFile reads node names, one per line. Blank lines and lines starting
// with '#' are skipped.
func ReadNodeFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open node file: %w", err)
	}
	defer file.Close()

	var nodes []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		nodes = append(nodes, strings.Fields(text)[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read node file: %w", err)
	}

	return nodes, nil
}
