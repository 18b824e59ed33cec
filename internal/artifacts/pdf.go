package artifacts

import (
	"fmt"
	"strings"
)

// renderPDF produces a minimal single-page PDF 1.4 document: a fixed
// five-object table (catalog, pages, page, Helvetica font, content stream)
// with the title and lines typeset at 11pt with 16pt leading from the top
// left of an A4 page. Parens and backslashes are escaped per the PDF string
// grammar.
func renderPDF(title string, lines []string) []byte {
	safe := make([]string, 0, len(lines)+2)
	for _, l := range append([]string{title, ""}, lines...) {
		safe = append(safe, escapePDFString(l))
	}

	ops := []string{"BT", "/F1 11 Tf", "50 770 Td"}
	for i, line := range safe {
		if i > 0 {
			ops = append(ops, "0 -16 Td")
		}
		ops = append(ops, fmt.Sprintf("(%s) Tj", line))
	}
	ops = append(ops, "ET")
	stream := strings.Join(ops, "\n")

	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n",
		"4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
		fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream),
	}

	var out strings.Builder
	out.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, out.Len())
		out.WriteString(obj)
	}

	xrefPos := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefPos)

	return []byte(out.String())
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
