package store

import (
	"context"
	"fmt"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// Enqueue appends a scanned code to the acquisition queue. Scanning the
// same code twice on the same day is recorded once.
func (s *Store) Enqueue(ctx context.Context, sc catalog.ScannedCode) (bool, error) {
	var r row
	r.set("prefix", sc.Prefix)
	r.set("code", sc.Code)
	r.set("scanned_on", sc.ScannedOn)
	r.set("created_at", s.timestamp())
	return s.insertIfAbsent(ctx, "enqueue", "scanned_codes", []string{"prefix", "code", "scanned_on"}, sc.Raw(), r)
}

// DequeueAll returns every queued code in the order it was enqueued. The
// rows stay in place until Remove is called for them.
//
// Returns an empty slice (not nil) if the queue is empty.
func (s *Store) DequeueAll(ctx context.Context) ([]catalog.ScannedCode, error) {
	rows, err := s.Query(ctx, `
		SELECT prefix, code, scanned_on
		FROM scanned_codes
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	defer rows.Close()

	codes := []catalog.ScannedCode{}
	for rows.Next() {
		var sc catalog.ScannedCode
		if err := rows.Scan(&sc.Prefix, &sc.Code, &sc.ScannedOn); err != nil {
			return nil, fmt.Errorf("scan queued code: %w", err)
		}
		codes = append(codes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queued codes: %w", err)
	}
	return codes, nil
}

// Remove deletes every queue row for the raw "PREFIX-CODE" string.
// Returns the number of rows removed.
func (s *Store) Remove(ctx context.Context, raw string) (int64, error) {
	sc, err := catalog.ParseScannedCode(raw)
	if err != nil {
		return 0, &WriteError{Op: "remove", Table: "scanned_codes", Key: raw, Err: err}
	}
	return s.exec(ctx, "remove", "scanned_codes", raw,
		"DELETE FROM scanned_codes WHERE prefix = ? AND code = ?", sc.Prefix, sc.Code)
}
