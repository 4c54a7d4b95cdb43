package vcf

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single line. Sample-rich records can be long.
const maxLineSize = 16 << 20

// Scanner reads variant text one line at a time. Blank lines are skipped;
// every other line is returned verbatim (without its terminator) by Line and
// parsed on demand by Record. Scanners are not threadsafe.
type Scanner struct {
	b    *bufio.Scanner
	line string
	rec  Record
	err  error
	n    int
}

// NewScanner constructs a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64<<10), maxLineSize)
	return &Scanner{b: b}
}

// Scan advances to the next non-blank line. Once Scan returns false, it never
// returns true again. The caller should then check Err to distinguish the end
// of input from a read failure.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.b.Scan() {
		s.n++
		line := s.b.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.line = line
		s.rec = nil
		return true
	}
	s.err = s.b.Err()
	if s.err == nil {
		s.err = io.EOF
	}
	return false
}

// Line returns the current line without its terminator.
func (s *Scanner) Line() string { return s.line }

// Record returns the current line parsed into fields. The result is cached
// until the next call to Scan.
func (s *Scanner) Record() Record {
	if s.rec == nil {
		s.rec = Parse(s.line)
	}
	return s.rec
}

// LineNumber returns the 1-based number of the current line in the input,
// counting skipped blank lines.
func (s *Scanner) LineNumber() int { return s.n }

// Err returns the scanning error, if any. Reaching the end of input is not an
// error.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
