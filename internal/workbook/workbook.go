// Package workbook reads and writes single-sheet tables in .xlsx files.
package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/mswreport-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrFileNotFound means the source workbook does not exist.
	ErrFileNotFound = errors.New("workbook not found")
	// ErrSheetNotFound means the workbook has no sheet with the requested name.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrWrite wraps any failure while producing the destination workbook.
	ErrWrite = errors.New("write workbook")
)

// Load reads sheet from the workbook at path. The first row becomes the
// header. Numeric cells load as Numbers, everything else as raw Text, and
// empty cells as Missing.
func Load(path, sheet string) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat workbook: %w", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("%w: '%s' in workbook '%s'.\nAvailable sheets: %s",
			ErrSheetNotFound, sheet, filepath.Base(path), strings.Join(f.GetSheetList(), ", "))
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.New(nil, nil), nil
	}
	header := rows[0]
	data := make([][]table.Value, 0, len(rows)-1)
	for i, rec := range rows[1:] {
		row := make([]table.Value, len(header))
		for j := 0; j < len(header) && j < len(rec); j++ {
			if strings.TrimSpace(rec[j]) == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("read cell %s: %w", cell, err)
			}
			row[j] = typedValue(rec[j], typ)
		}
		data = append(data, row)
	}
	return table.New(header, data), nil
}

// typedValue keeps numeric cells numeric. In OOXML a cell without a type
// attribute is a number.
func typedValue(raw string, typ excelize.CellType) table.Value {
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v := table.ToNumber(table.Text(raw)); !v.IsMissing() {
			return v
		}
	}
	return table.Text(raw)
}

// Save writes t as the only sheet of a new workbook at path, replacing any
// existing file. The workbook is written next to path first and renamed into
// place, so a failed save leaves no partial output behind.
func Save(path, sheet string, t *table.Table) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("%w: rename sheet: %w", ErrWrite, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("%w: stream writer: %w", ErrWrite, err)
	}
	header := t.Columns()
	hdr := make([]interface{}, len(header))
	for j, h := range header {
		hdr[j] = h
	}
	if err := sw.SetRow("A1", hdr); err != nil {
		return fmt.Errorf("%w: header: %w", ErrWrite, err)
	}
	for i := 0; i < t.Len(); i++ {
		cells := make([]interface{}, len(header))
		for j := range header {
			cells[j] = cellValue(t.At(i, j))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("%w: row %d: %w", ErrWrite, i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mswreport-*.xlsx")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	defer os.Remove(tmp.Name())
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: atomic rename: %w", ErrWrite, err)
	}
	return nil
}

func cellValue(v table.Value) interface{} {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindText:
		return v.String()
	default:
		return nil
	}
}
