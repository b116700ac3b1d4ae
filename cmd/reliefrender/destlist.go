package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/relief-render/reliefrender/internal/rerr"
)

// readDestList parses a destination-list file: one worker address per line,
// skipping lines that are blank or start with '#' or a space (spec.md §6).
func readDestList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.Wrapf(rerr.MissingFile, err, "open destination list %s", path)
	}
	defer f.Close()

	var addrs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, " ") {
			continue
		}
		addrs = append(addrs, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, rerr.Wrapf(rerr.BadInvocation, err, "read destination list %s", path)
	}
	if len(addrs) == 0 {
		return nil, rerr.Newf(rerr.BadInvocation, "destination list %s names no workers", path)
	}
	return addrs, nil
}
