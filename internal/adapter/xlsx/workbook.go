// Package xlsx reads tabular sources published as Excel workbooks and exports
// the unified collection as a workbook.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/feriando/places-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether data looks like an OOXML workbook.
func IsWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// ReadTable converts the first non-empty sheet of a workbook into a table.
// The first non-blank row is the header.
func ReadTable(data []byte) (domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return domain.Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		header := -1
		for i, row := range rows {
			if !blankRow(row) {
				header = i
				break
			}
		}
		if header < 0 {
			continue
		}

		body := make([][]string, 0, len(rows)-header-1)
		for _, row := range rows[header+1:] {
			if blankRow(row) {
				continue
			}
			body = append(body, row)
		}
		return domain.NewTable(rows[header], body), nil
	}
	return domain.Table{}, errors.New("workbook has no data")
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var exportHeader = []string{
	"ID", "NAME", "CATEGORY", "TYPE", "ADDRESS", "NEIGHBORHOOD", "COMMUNE",
	"LAT", "LNG", "DAYS", "OPEN", "CLOSE", "SCHEDULE", "PRODUCTS", "TAGS", "GEO_SOURCE",
}

// WritePlaces writes places to a single-sheet workbook.
func WritePlaces(w io.Writer, places []domain.Place) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Places"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRow(f, sheet, 1, toAny(exportHeader)); err != nil {
		return err
	}
	for i, p := range places {
		row := []any{
			p.ID, p.Name, p.Category, p.Type, p.Address, p.Neighborhood, p.Commune,
			p.Lat, p.Lng,
			strings.Join(p.DaysOpen, ", "),
			p.Hours.Open, p.Hours.Close,
			string(p.ScheduleBucket),
			strings.Join(p.Products, ", "),
			strings.Join(p.Tags, ", "),
			p.GeoSource,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, r int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", r, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
