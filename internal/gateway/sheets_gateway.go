package gateway

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"

	"github.com/mailcadence/sequencer/internal/domain"
)

// SheetsGateway is the production SpreadsheetGateway backed by the Google
// Sheets v4 API (spec.md §6, SPEC_FULL §2 domain stack).
type SheetsGateway struct {
	svc *sheets.Service
}

// NewSheetsGateway wraps an already-authenticated Sheets API client.
func NewSheetsGateway(svc *sheets.Service) *SheetsGateway {
	return &SheetsGateway{svc: svc}
}

func qualifiedRange(sheetTitle, a1 string) string {
	return fmt.Sprintf("%s!%s", sheetTitle, a1)
}

// ReadBatch issues a single spreadsheets.values.batchGet call covering every
// reference and returns the first non-empty cell's text per reference.
func (g *SheetsGateway) ReadBatch(ctx context.Context, spreadsheetID, sheetTitle string, refs []domain.SpreadsheetReference) (map[string]string, error) {
	if len(refs) == 0 {
		return map[string]string{}, nil
	}

	ranges := make([]string, 0, len(refs))
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		a1, err := ref.A1()
		if err != nil {
			return nil, domain.NewGatewayError("sheets: render A1 range", err)
		}
		ranges = append(ranges, qualifiedRange(sheetTitle, a1))
		keys = append(keys, a1)
	}

	resp, err := g.svc.Spreadsheets.Values.BatchGet(spreadsheetID).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return nil, domain.NewGatewayError("sheets: batch get", err)
	}

	out := make(map[string]string, len(keys))
	for i, vr := range resp.ValueRanges {
		if i >= len(keys) {
			break
		}
		out[keys[i]] = firstNonEmptyCell(vr.Values)
	}
	return out, nil
}

func firstNonEmptyCell(rows [][]interface{}) string {
	for _, row := range rows {
		for _, cell := range row {
			if s := fmt.Sprintf("%v", cell); s != "" && s != "<nil>" {
				return s
			}
		}
	}
	return ""
}

// Write sets a single cell's value via spreadsheets.values.update.
func (g *SheetsGateway) Write(ctx context.Context, spreadsheetID, sheetTitle string, ref domain.SpreadsheetReference, value string) error {
	a1, err := ref.A1()
	if err != nil {
		return domain.NewGatewayError("sheets: render A1 range", err)
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err = g.svc.Spreadsheets.Values.Update(spreadsheetID, qualifiedRange(sheetTitle, a1), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return domain.NewGatewayError("sheets: write cell", err)
	}
	return nil
}

// WriteBatch sets many cells in a single spreadsheets.values.batchUpdate call.
func (g *SheetsGateway) WriteBatch(ctx context.Context, spreadsheetID, sheetTitle string, values map[domain.SpreadsheetReference]string) error {
	if len(values) == 0 {
		return nil
	}

	data := make([]*sheets.ValueRange, 0, len(values))
	for ref, value := range values {
		a1, err := ref.A1()
		if err != nil {
			return domain.NewGatewayError("sheets: render A1 range", err)
		}
		data = append(data, &sheets.ValueRange{
			Range:  qualifiedRange(sheetTitle, a1),
			Values: [][]interface{}{{value}},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	_, err := g.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return domain.NewGatewayError("sheets: batch write", err)
	}
	return nil
}

// SearchColumn reads the whole column and returns the 1-based row index of
// the first cell matching target.
func (g *SheetsGateway) SearchColumn(ctx context.Context, spreadsheetID, sheetTitle string, column string, target string) (int, error) {
	colRef, err := domain.NewColumnReference(column)
	if err != nil {
		return 0, domain.NewGatewayError("sheets: invalid column reference", err)
	}
	a1, err := colRef.A1()
	if err != nil {
		return 0, domain.NewGatewayError("sheets: render column range", err)
	}

	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, qualifiedRange(sheetTitle, a1)).Context(ctx).Do()
	if err != nil {
		return 0, domain.NewGatewayError("sheets: search column", err)
	}

	for i, row := range resp.Values {
		for _, cell := range row {
			if fmt.Sprintf("%v", cell) == target {
				return i + 1, nil
			}
		}
	}
	return 0, &domain.ErrNotFound{Entity: "spreadsheet row matching column value", ID: target}
}

// ReadRows reads rows startRow..endRow across the whole sheet width and
// returns each row's cells as strings, short rows padded with "" so callers
// can index fixed column offsets without bounds-checking every access.
func (g *SheetsGateway) ReadRows(ctx context.Context, spreadsheetID, sheetTitle string, startRow, endRow int) ([][]string, error) {
	if startRow <= 0 || endRow < startRow {
		return nil, domain.NewGatewayError("sheets: read rows", fmt.Errorf("invalid row range %d:%d", startRow, endRow))
	}
	a1 := fmt.Sprintf("%d:%d", startRow, endRow)

	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, qualifiedRange(sheetTitle, a1)).Context(ctx).Do()
	if err != nil {
		return nil, domain.NewGatewayError("sheets: read rows", err)
	}

	width := 0
	for _, row := range resp.Values {
		if len(row) > width {
			width = len(row)
		}
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, width)
		for j := 0; j < width; j++ {
			if j < len(row) {
				cells[j] = fmt.Sprintf("%v", row[j])
			}
		}
		out[i] = cells
	}
	return out, nil
}
