// Package vcf reads and writes the line-oriented variant text format used
// throughout varcombine. A line is split into whitespace-delimited fields;
// lines whose first field begins with '#' are headers and are carried
// through every transform untouched.
//
// The package performs no schema validation. Consumers decide how many fields
// they need: the duplicate resolver needs five, the normalizer needs nine.
package vcf

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Fixed column positions of a data record.
const (
	ChromCol = iota
	PosCol
	IDCol
	RefCol
	AltCol
	QualCol
	FilterCol
	InfoCol
	FormatCol
	SampleCol
)

// Record is one parsed line: its fields in order. A Record is never mutated
// by the transforms in this module; they build new records instead.
type Record []string

// Parse splits line on runs of whitespace. Leading and trailing whitespace,
// including the line terminator, is ignored.
func Parse(line string) Record {
	return Record(strings.Fields(line))
}

// IsHeader reports whether the first character of the first field is '#'.
func (r Record) IsHeader() bool {
	return len(r) > 0 && len(r[0]) > 0 && r[0][0] == '#'
}

// IsHeaderLine is IsHeader for an unparsed line. It only looks at the first
// non-blank byte.
func IsHeaderLine(line string) bool {
	line = strings.TrimLeft(line, " \t")
	return len(line) > 0 && line[0] == '#'
}

func (r Record) field(i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}

// Chrom returns field 0, or "" if absent.
func (r Record) Chrom() string { return r.field(ChromCol) }

// Pos returns field 1 verbatim.
func (r Record) Pos() string { return r.field(PosCol) }

// ID returns field 2.
func (r Record) ID() string { return r.field(IDCol) }

// Ref returns field 3.
func (r Record) Ref() string { return r.field(RefCol) }

// Alt returns field 4.
func (r Record) Alt() string { return r.field(AltCol) }

// Qual returns field 5.
func (r Record) Qual() string { return r.field(QualCol) }

// Filter returns field 6.
func (r Record) Filter() string { return r.field(FilterCol) }

// Info returns field 7 and whether the record has one.
func (r Record) Info() (string, bool) {
	if len(r) > InfoCol {
		return r[InfoCol], true
	}
	return "", false
}

// Format returns field 8 and whether the record has one.
func (r Record) Format() (string, bool) {
	if len(r) > FormatCol {
		return r[FormatCol], true
	}
	return "", false
}

// Samples returns the sample columns (fields 9 and up). The result aliases r.
func (r Record) Samples() []string {
	if len(r) > SampleCol {
		return r[SampleCol:]
	}
	return nil
}

// String joins the fields with single tabs.
func (r Record) String() string {
	return strings.Join(r, "\t")
}

// DuplicateKey identifies equivalent variants. Fields are compared as text;
// the key is only ever used for equality, never ordering.
type DuplicateKey struct {
	Chrom, Pos, Ref, Alt string
}

func (k DuplicateKey) String() string {
	return fmt.Sprintf("(%s,%s,%s,%s)", k.Chrom, k.Pos, k.Ref, k.Alt)
}

// minKeyFields is the number of leading fields needed to build a DuplicateKey.
const minKeyFields = AltCol + 1

// Key returns the record's DuplicateKey. A record with fewer than five fields
// cannot form a key; the error has kind errors.Invalid.
func (r Record) Key() (DuplicateKey, error) {
	if len(r) < minKeyFields {
		return DuplicateKey{}, errors.E(errors.Invalid,
			fmt.Sprintf("malformed record: want at least %d fields, got %d: %q", minKeyFields, len(r), r.String()))
	}
	return DuplicateKey{Chrom: r[ChromCol], Pos: r[PosCol], Ref: r[RefCol], Alt: r[AltCol]}, nil
}
