/*
Package sheets syncs neuron update requests with a spreadsheet: request
identifiers are read from one range and processed identifiers are appended to
another.
*/
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Client reads and appends rows of a spreadsheet.  Ranges use A1 notation,
// e.g. "requests!A:A".
type Client interface {
	Values(ctx context.Context, rng string) ([][]string, error)
	Append(ctx context.Context, rng string, rows [][]string) error
}

// Status of a processed request.
type Status string

const (
	StatusDone    Status = "done"
	StatusMissing Status = "missing"
	StatusFailed  Status = "failed"
)

// Processed records the outcome for one requested identifier.
type Processed struct {
	ID     neuprep.Identifier
	Status Status
	Time   time.Time
}

func (p Processed) row() []string {
	return []string{string(p.ID), p.Time.UTC().Format(time.RFC3339), string(p.Status)}
}

func isHeader(cell string) bool {
	return strings.IndexFunc(cell, unicode.IsDigit) < 0
}

// firstColumn returns the unique non-blank cells of the first column.  A
// first row whose cell holds no digits is taken as a header and skipped.
func firstColumn(rows [][]string) neuprep.Identifiers {
	var cells []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(row[0])
		if cell == "" || (i == 0 && isHeader(cell)) {
			continue
		}
		cells = append(cells, cell)
	}
	return neuprep.ParseIdentifiers(cells).Unique()
}

// Requests returns the identifiers listed in the first column of the range.
func Requests(ctx context.Context, client Client, rng string) (neuprep.Identifiers, error) {
	rows, err := client.Values(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("reading requests from %q: %v", rng, err)
	}
	ids := firstColumn(rows)
	neuprep.Debugf("Read %d requested identifiers from %q\n", len(ids), rng)
	return ids, nil
}

// Pending returns requested identifiers not already recorded as done in the
// processed range.
func Pending(ctx context.Context, client Client, requestRange, doneRange string) (neuprep.Identifiers, error) {
	requested, err := Requests(ctx, client, requestRange)
	if err != nil {
		return nil, err
	}
	rows, err := client.Values(ctx, doneRange)
	if err != nil {
		return nil, fmt.Errorf("reading processed rows from %q: %v", doneRange, err)
	}
	done := make(map[neuprep.Identifier]struct{}, len(rows))
	for _, row := range rows {
		if len(row) >= 3 && Status(strings.TrimSpace(row[2])) == StatusDone {
			done[neuprep.Identifier(strings.TrimSpace(row[0]))] = struct{}{}
		}
	}
	var pending neuprep.Identifiers
	for _, id := range requested {
		if _, found := done[id]; !found {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

// AppendProcessed appends one row per record: identifier, UTC timestamp and
// status.
func AppendProcessed(ctx context.Context, client Client, rng string, records []Processed) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		if rec.Time.IsZero() {
			rec.Time = time.Now()
		}
		rows[i] = rec.row()
	}
	if err := client.Append(ctx, rng, rows); err != nil {
		return fmt.Errorf("appending %d processed rows to %q: %v", len(rows), rng, err)
	}
	return nil
}
