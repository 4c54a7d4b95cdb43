package vcf

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// closestWindow is the exclusive distance bound used by ClosestVariant.
const closestWindow = 100

type fileReader struct {
	io.Reader
	ctx context.Context
	f   file.File
}

func (r *fileReader) Close() error { return r.f.Close(r.ctx) }

// Open opens path for reading. The path may name any location supported by
// grailbio/base/file. Compressed inputs (e.g. ".gz") are decompressed
// transparently.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	return &fileReader{Reader: r, ctx: ctx, f: f}, nil
}

// CountVariants returns the number of data records in r.
func CountVariants(r io.Reader) (int, error) {
	sc := NewScanner(r)
	n := 0
	for sc.Scan() {
		if !IsHeaderLine(sc.Line()) {
			n++
		}
	}
	return n, sc.Err()
}

// FilterChrom copies the headers and the data records on chrom from r to w.
// Lines are written with surrounding whitespace trimmed.
func FilterChrom(r io.Reader, w io.Writer, chrom string) error {
	sc := NewScanner(r)
	out := NewWriter(w)
	for sc.Scan() {
		rec := sc.Record()
		if rec.IsHeader() || rec.Chrom() == chrom {
			if err := out.WriteLine(strings.TrimSpace(sc.Line())); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

// ClosestVariant returns the record on chrom whose position is nearest to
// pos, among records strictly less than 100 bases away. The earliest record
// wins ties. It returns nil if there is none. Records with a non-numeric
// position are an error.
func ClosestVariant(r io.Reader, chrom string, pos int) (Record, error) {
	sc := NewScanner(r)
	var best Record
	minDist := closestWindow
	for sc.Scan() {
		rec := sc.Record()
		if rec.IsHeader() || rec.Chrom() != chrom {
			continue
		}
		p, err := strconv.Atoi(rec.Pos())
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("line %d", sc.LineNumber()))
		}
		d := p - pos
		if d < 0 {
			d = -d
		}
		if d < minDist {
			minDist = d
			best = rec
		}
	}
	return best, sc.Err()
}

// MatchingAltRef returns the first data record in r whose DuplicateKey equals
// key, or nil.
func MatchingAltRef(r io.Reader, key DuplicateKey) (Record, error) {
	sc := NewScanner(r)
	for sc.Scan() {
		rec := sc.Record()
		if rec.IsHeader() {
			continue
		}
		k, err := rec.Key()
		if err != nil {
			continue
		}
		if k == key {
			return rec, nil
		}
	}
	return nil, sc.Err()
}
