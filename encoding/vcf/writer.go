package vcf

import "io"

var newline = []byte{'\n'}

// Writer writes variant text lines. The first write error is sticky: later
// writes are skipped and return it.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a Writer that writes lines to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes line followed by a newline.
func (w *Writer) WriteLine(line string) error {
	w.writeln(line)
	return w.err
}

// Write writes r with its fields joined by single tabs.
func (w *Writer) Write(r Record) error {
	w.writeln(r.String())
	return w.err
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error { return w.err }

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
