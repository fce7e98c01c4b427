package parsers

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gnamed/gnamed/internal/taxonomy"
)

// NCBI taxonomy dump field counts after splitting on '|' (the trailing
// separator yields one empty field).
const (
	taxaNodeFields = 14
	taxaNameFields = 5
)

// splitTaxaLine splits a pipe-delimited dump line and trims each field.
func splitTaxaLine(line string, want int) ([]string, error) {
	items := strings.Split(line, "|")
	if len(items) != want {
		return nil, fmt.Errorf("expected %d fields, got %d", want, len(items))
	}
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items, nil
}

// ParseNodes feeds every nodes.dmp row to the tree loader's definition
// pass.
func ParseNodes(ctx context.Context, r io.Reader, tree *taxonomy.TreeLoader) error {
	return scanLines(ctx, r, func(n int, line string) error {
		items, err := splitTaxaLine(line, taxaNodeFields)
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(items[0])
		if err != nil {
			return fmt.Errorf("bad taxonomy id %q: %w", items[0], err)
		}
		parentID, err := strconv.Atoi(items[1])
		if err != nil {
			return fmt.Errorf("bad parent id %q: %w", items[1], err)
		}
		tree.AddNode(id, parentID, items[2])
		return nil
	})
}

// ParseNames feeds every names.dmp row to the tree loader's name pass.
// Rows for one taxonomy ID are contiguous in the dump, which the tree
// loader relies on.
func ParseNames(ctx context.Context, r io.Reader, tree *taxonomy.TreeLoader) error {
	return scanLines(ctx, r, func(n int, line string) error {
		items, err := splitTaxaLine(line, taxaNameFields)
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(items[0])
		if err != nil {
			return fmt.Errorf("bad taxonomy id %q: %w", items[0], err)
		}
		return tree.AddName(ctx, id, items[3], items[1], items[2])
	})
}
