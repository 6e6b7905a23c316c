package store

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// auditColumns change on every write and are left out of dumps.
var auditColumns = map[string]bool{
	"updated_at":   true,
	"created_at":   true,
	"synced_at":    true,
	"attempted_at": true,
	"seq":          true,
}

// DumpTables returns every table in dump order: entity tables, value
// tables, the overlay, the queue, then join tables.
func DumpTables() []string {
	var tables []string
	for _, k := range catalog.Kinds {
		tables = append(tables, k.Table())
	}
	tables = append(tables, "Images", "URLs", "PurchasedComics", "scanned_codes")
	for _, r := range relations {
		tables = append(tables, r.Table)
	}
	return tables
}

// Dump writes a deterministic text rendering of the given tables (all of
// them when none are named). Each row is one line of col=value pairs with
// NULL columns omitted; lines are sorted. Empty tables are skipped.
//
// The format is stable across runs with the same data and is used for
// golden-file comparisons.
func (s *Store) Dump(ctx context.Context, w io.Writer, tables ...string) error {
	if len(tables) == 0 {
		tables = DumpTables()
	}
	for _, table := range tables {
		lines, err := s.dumpTable(ctx, table)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "== %s (%d)\n", table, len(lines)); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) dumpTable(ctx context.Context, table string) ([]string, error) {
	if !knownTable(table) {
		return nil, fmt.Errorf("dump: unknown table %q", table)
	}
	rows, err := s.Query(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", table, err)
	}

	lines := []string{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dump %s: %w", table, err)
		}

		var parts []string
		for i, col := range cols {
			if auditColumns[col] || vals[i] == nil {
				continue
			}
			parts = append(parts, col+"="+dumpValue(vals[i]))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dump %s: %w", table, err)
	}
	sort.Strings(lines)
	return lines, nil
}

func dumpValue(v any) string {
	switch x := v.(type) {
	case []byte:
		return strconv.Quote(string(x))
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
