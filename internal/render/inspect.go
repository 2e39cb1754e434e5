package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// Inspect opens a PDF and returns its page count.
func Inspect(data []byte) (pages int, err error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return 0, errors.New("not a pdf file")
	}
	defer func() {
		// the reader panics on some malformed cross-reference tables
		if rec := recover(); rec != nil {
			pages = 0
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	n := reader.NumPage()
	if n < 1 {
		return 0, errors.New("pdf has no pages")
	}
	return n, nil
}
