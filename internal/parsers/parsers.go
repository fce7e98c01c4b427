// Package parsers turns provider dump files into record streams for
// the loaders: Entrez Gene, HGNC, UniProtKB and the NCBI taxonomy.
//
// Every parser reports failures with the offending line number and raw
// input so an operator can locate the problem in the source file; a
// parse error aborts the whole file rather than skipping data.
package parsers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// maxLineSize accommodates the longest lines seen in provider dumps
// (Entrez other_designations fields can run to tens of kilobytes).
const maxLineSize = 1 << 20

// scanLines feeds every non-empty, whitespace-trimmed line to fn along
// with its one-based line number, wrapping fn errors with that context.
func scanLines(ctx context.Context, r io.Reader, fn func(n int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(n, line); err != nil {
			return fmt.Errorf("line %d (%q): %w", n, truncate(line, 120), err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
