package gateway

import (
	"context"

	"github.com/mailcadence/sequencer/internal/domain"
)

// SpreadsheetGateway abstracts reading and writing cell ranges of the
// operator's contact spreadsheet (spec.md §6). Implementations must treat a
// single-cell/column/row reference as shorthand for the equivalent `X:X`
// range, matching domain.SpreadsheetReference.A1.
type SpreadsheetGateway interface {
	// ReadBatch reads every reference in one round trip, returning the
	// first non-empty textual value found in each reference's range,
	// keyed by the reference's A1 form (spec.md §4.4 step 5: one batch
	// read per recipient per resolution).
	ReadBatch(ctx context.Context, spreadsheetID, sheetTitle string, refs []domain.SpreadsheetReference) (map[string]string, error)
	// Write sets a single cell's value.
	Write(ctx context.Context, spreadsheetID, sheetTitle string, ref domain.SpreadsheetReference, value string) error
	// WriteBatch sets many cells in one round trip, keyed by A1 form.
	WriteBatch(ctx context.Context, spreadsheetID, sheetTitle string, values map[domain.SpreadsheetReference]string) error
	// SearchColumn scans a column top-to-bottom for the first row whose
	// value equals target, returning that row's 1-based index.
	SearchColumn(ctx context.Context, spreadsheetID, sheetTitle string, column string, target string) (int, error)
	// ReadRows reads every column of rows startRow..endRow (1-based,
	// inclusive) and returns one []string per row, used by the
	// external-history and recipient ingestors to walk a sheet a row at a
	// time (spec.md §4.8).
	ReadRows(ctx context.Context, spreadsheetID, sheetTitle string, startRow, endRow int) ([][]string, error)
}
