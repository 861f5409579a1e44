package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxFileBytes caps the size of an uploaded file.
const MaxFileBytes = 10 << 20

// ExtractionError reports an uploaded file that could not be read.
type ExtractionError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract: %s: %s", e.Name, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// File extracts identifiers from an uploaded file. The extension of name
// selects the parser: plain text files are scanned line by line for embedded
// identifiers, spreadsheets keep only cells that are exactly one identifier.
func File(name string, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return nil, &ExtractionError{Name: name, Reason: "read failed", Err: err}
	}
	if len(data) > MaxFileBytes {
		return nil, &ExtractionError{Name: name, Reason: fmt.Sprintf("file exceeds %d bytes", MaxFileBytes)}
	}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case "", ".txt", ".csv", ".tsv":
		text, err := decodeText(data)
		if err != nil {
			return nil, &ExtractionError{Name: name, Reason: "corrupt encoding", Err: err}
		}
		return lines(text)
	case ".xlsx":
		cells, err := xlsxCells(data)
		if err != nil {
			return nil, &ExtractionError{Name: name, Reason: "unreadable workbook", Err: err}
		}
		return exactCells(cells)
	case ".xls":
		cells, err := xlsCells(data)
		if err != nil {
			return nil, &ExtractionError{Name: name, Reason: "unreadable workbook", Err: err}
		}
		return exactCells(cells)
	default:
		return nil, &ExtractionError{Name: name, Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}
}

// lines scans every line of a text file for embedded identifiers.
func lines(text string) ([]string, error) {
	set := newOrderedSet()
	for _, line := range strings.Split(text, "\n") {
		set.addAll(Find(line))
	}
	return set.result()
}

func exactCells(cells []string) ([]string, error) {
	set := newOrderedSet()
	for _, c := range cells {
		c = fold(strings.TrimSpace(c))
		if Valid(c) {
			set.add(c)
		}
	}
	return set.result()
}

// sniffWorkbook guards the spreadsheet parsers against plain text renamed to
// a spreadsheet extension.
func sniffWorkbook(data []byte, magic []byte) error {
	if !bytes.HasPrefix(data, magic) {
		return eris.New("missing workbook signature")
	}
	return nil
}
