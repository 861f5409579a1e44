package extract

import (
	"bytes"

	"github.com/extrame/xls"
	"github.com/rotisserie/eris"
)

// OLE2 compound document header used by BIFF workbooks.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// xlsCells flattens every cell of the first sheet of a legacy BIFF workbook.
// The parser panics on some malformed inputs, so those are turned into errors.
func xlsCells(data []byte) (cells []string, err error) {
	if err := sniffWorkbook(data, oleMagic); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			cells = nil
			err = eris.Errorf("xls: malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, eris.Wrap(err, "xls: open")
	}
	if wb.NumSheets() == 0 {
		return nil, eris.New("xls: workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, eris.New("xls: first sheet unreadable")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		last := row.LastCol()
		if last <= row.FirstCol() {
			last = xlsMaxCols
		}
		for c := row.FirstCol(); c < last; c++ {
			cells = append(cells, row.Col(c))
		}
	}
	return cells, nil
}

// xlsMaxCols bounds the column scan of a row that has cells but no ROW record.
const xlsMaxCols = 256

// xlsRow returns nil for a row index the sheet has no record of;
// WorkSheet.Row dereferences the missing row.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
