package extract

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var zipMagic = []byte("PK\x03\x04")

// xlsxCells flattens every cell of the first sheet to a string.
func xlsxCells(data []byte) ([]string, error) {
	if err := sniffWorkbook(data, zipMagic); err != nil {
		return nil, err
	}

	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}

	sheet, err := firstSheet(f)
	if err != nil {
		return nil, err
	}

	var cells []string
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells = append(cells, rowToStrings(row)...)
	}
	return cells, nil
}

func firstSheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells = append(cells, cell.String())
	}
	return cells
}
