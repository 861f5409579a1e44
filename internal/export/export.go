// Package export writes normalized tracking records to an .xlsx workbook.
package export

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/internal/normalize"
)

// ContentType is the MIME type of the serialized workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultSheetName names the single sheet when no option overrides it.
const DefaultSheetName = "Tracking"

// ErrNoData is returned when there are no records to export.
var ErrNoData = eris.New("export: no data")

// Option configures serialization.
type Option func(*options)

type options struct {
	sheetName string
}

// WithSheetName sets the worksheet name. Blank names are ignored.
func WithSheetName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.sheetName = name
		}
	}
}

// FileName returns the download name for an export taken at now.
func FileName(now time.Time) string {
	return "tracking-" + now.Format("20060102-150405") + ".xlsx"
}

// Serialize writes records as a single-sheet workbook: one header row of
// normalize.Columns followed by one row per record, in input order.
func Serialize(w io.Writer, records []model.NormalizedRecord, opts ...Option) error {
	if len(records) == 0 {
		return ErrNoData
	}

	o := options{sheetName: DefaultSheetName}
	for _, opt := range opts {
		opt(&o)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(o.sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true
	for _, title := range normalize.Columns {
		cell := header.AddCell()
		cell.SetString(title)
		cell.SetStyle(bold)
	}

	for _, rec := range records {
		writeRow(sheet.AddRow(), normalize.ExportRow(rec))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// Bytes serializes records into memory.
func Bytes(records []model.NormalizedRecord, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(&buf, records, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes records to path. Nothing is written when records is
// empty.
func WriteFile(path string, records []model.NormalizedRecord, opts ...Option) error {
	data, err := Bytes(records, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write file")
	}
	return nil
}

func writeRow(row *xlsx.Row, cells []string) {
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
