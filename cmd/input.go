package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/track-cli/internal/extract"
)

// readIdentifiers extracts identifiers from --text or --file. A file of "-"
// reads plain text from stdin.
func readIdentifiers(text, file string, stdin io.Reader) ([]string, error) {
	switch {
	case text != "" && file != "":
		return nil, eris.New("use either --text or --file, not both")
	case file == "-":
		return extract.File("stdin", stdin)
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, eris.Wrap(err, "open input file")
		}
		defer f.Close()
		return extract.File(filepath.Base(file), f)
	case text != "":
		return extract.Text(text)
	default:
		return nil, eris.New("provide tracking numbers with --text or --file")
	}
}
