// Package normalize rewrites variant records into a fixed 10-column minimal
// form used for comparing call sets:
//
//	CHROM POS . REF ALT . . INFO FORMAT GENOTYPE
//
// ID, QUAL and FILTER are blanked. INFO is kept only if its keys are
// distinct. GENOTYPE is the last column of the input, with "./." replaced by
// "0/1". Records with fewer than nine fields cannot be normalized and are
// dropped with a warning; they never abort the stream.
package normalize

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/varcombine/encoding/vcf"
)

const (
	// MinFields is the fewest fields a data record needs to be normalized.
	MinFields = vcf.FormatCol + 1

	missing        = "."
	noCall         = "./."
	hetPlaceholder = "0/1"
)

// DropError reports a record that was too short to normalize.
type DropError struct {
	Record vcf.Record
}

func (e *DropError) Error() string {
	return fmt.Sprintf("line %s has <%d fields", strings.Join(e.Record, " "), MinFields)
}

// IsDrop reports whether err is a *DropError.
func IsDrop(err error) bool {
	_, ok := err.(*DropError)
	return ok
}

// Normalize returns the minimal form of rec. Header records are returned
// unchanged. A data record with fewer than MinFields fields yields a
// *DropError.
//
// When rec has exactly nine fields, FORMAT is also the last field, so it is
// written as both the FORMAT and the GENOTYPE column.
func Normalize(rec vcf.Record) (vcf.Record, error) {
	if rec.IsHeader() {
		return rec, nil
	}
	if len(rec) < MinFields {
		return nil, &DropError{Record: rec}
	}
	info, ok := rec.Info()
	if !ok || hasDuplicateKeys(info) {
		info = missing
	}
	format, _ := rec.Format()
	gt := rec[len(rec)-1]
	if gt == noCall {
		gt = hetPlaceholder
	}
	return vcf.Record{
		rec.Chrom(), rec.Pos(), missing, rec.Ref(), rec.Alt(), missing, missing,
		info, format, gt,
	}, nil
}

// hasDuplicateKeys reports whether two INFO entries share a key. Such an
// annotation is treated as corrupt.
func hasDuplicateKeys(info string) bool {
	keys := vcf.InfoKeys(info)
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// Result summarizes a Stream call.
type Result struct {
	// Headers and Records count the lines written.
	Headers, Records int
	// Dropped lists the records that were too short, in input order.
	Dropped []vcf.Record
}

// Stream normalizes every line of r and writes the result to w, one
// tab-separated record per line. Header lines are written with surrounding
// whitespace trimmed. Dropped records are logged and collected in the
// result; only read and write failures (or cancellation of ctx) are
// returned as errors.
func Stream(ctx context.Context, r io.Reader, w io.Writer) (Result, error) {
	var res Result
	sc := vcf.NewScanner(r)
	out := vcf.NewWriter(w)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec := sc.Record()
		if rec.IsHeader() {
			res.Headers++
			if err := out.WriteLine(strings.TrimSpace(sc.Line())); err != nil {
				return res, err
			}
			continue
		}
		norm, err := Normalize(rec)
		if err != nil {
			log.Error.Printf("normalize: %v", err)
			res.Dropped = append(res.Dropped, rec)
			continue
		}
		res.Records++
		if err := out.Write(norm); err != nil {
			return res, err
		}
	}
	return res, sc.Err()
}
