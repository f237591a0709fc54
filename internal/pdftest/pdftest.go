// Package pdftest synthesizes minimal but valid PDF documents for tests.
// Offsets in the cross-reference table are computed while writing, so the
// output always parses.
package pdftest

import (
	"bytes"
	"fmt"
)

// MinimalPDF returns a PDF with the given number of pages, each with a
// MediaBox of width x height points. Pages carry no content streams.
func MinimalPDF(pages int, width, height float64) []byte {
	if pages < 1 {
		pages = 1
	}
	var buf bytes.Buffer
	offsets := make([]int, 0, pages+3)

	buf.WriteString("%PDF-1.4\n")

	// 1: catalog
	offsets = append(offsets, buf.Len())
	buf.WriteString("1 0 obj\n<</Type/Catalog/Pages 2 0 R>>\nendobj\n")

	// 2: pages node
	offsets = append(offsets, buf.Len())
	buf.WriteString("2 0 obj\n<</Type/Pages/Kids[")
	for i := 0; i < pages; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%d 0 R", 3+i)
	}
	fmt.Fprintf(&buf, "]/Count %d>>\nendobj\n", pages)

	// 3..: page objects
	for i := 0; i < pages; i++ {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf,
			"%d 0 obj\n<</Type/Page/Parent 2 0 R/MediaBox[0 0 %g %g]/Resources<<>> >>\nendobj\n",
			3+i, width, height)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)
	return buf.Bytes()
}
