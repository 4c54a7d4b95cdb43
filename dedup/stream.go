package dedup

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/varcombine/encoding/vcf"
)

// Stats counts what a Resolver saw and did.
type Stats struct {
	// Headers is the number of header lines passed through.
	Headers int
	// Records is the number of data records read.
	Records int
	// Runs is the number of runs resolved. Zero under KeepAll.
	Runs int
	// MaxRunLength is the length of the longest run.
	MaxRunLength int
	// Emitted is the number of data records written.
	Emitted int
	// Discarded is the number of data records dropped.
	Discarded int
}

// Resolve reads lines from r, filters them under policy and writes the
// survivors to w. It stops with ctx.Err() if ctx is canceled; in that case,
// and on any other error, the output is incomplete and must be discarded.
func Resolve(ctx context.Context, r io.Reader, w io.Writer, policy Policy) (Stats, error) {
	out := vcf.NewWriter(w)
	res := NewResolver(policy, out.WriteLine)
	sc := vcf.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return res.Stats(), err
		}
		if err := res.Add(sc.Line()); err != nil {
			return res.Stats(), errors.E(err, fmt.Sprintf("line %d", sc.LineNumber()))
		}
	}
	if err := sc.Err(); err != nil {
		return res.Stats(), err
	}
	if err := res.Flush(); err != nil {
		return res.Stats(), err
	}
	stats := res.Stats()
	log.Printf("dedup(%v): %d records, %d runs, %d emitted, %d discarded",
		policy, stats.Records, stats.Runs, stats.Emitted, stats.Discarded)
	return stats, nil
}

const metricsHeader = "# bio-vcf combine\n" +
	"POLICY\tHEADERS\tRECORDS\tRUNS\tMAX_RUN_LENGTH\tEMITTED\tDISCARDED\n"

// String formats s as one metrics row, without the policy column.
func (s Stats) String() string {
	return fmt.Sprintf("%d\t%d\t%d\t%d\t%d\t%d",
		s.Headers, s.Records, s.Runs, s.MaxRunLength, s.Emitted, s.Discarded)
}

// WriteMetrics writes s as a two-line TSV table to path.
func WriteMetrics(ctx context.Context, path string, policy Policy, s Stats) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "couldn't create metrics file:", path)
	}
	defer func() {
		if err2 := f.Close(ctx); err == nil && err2 != nil {
			err = err2
		}
	}()
	if _, err = fmt.Fprintf(f.Writer(ctx), "%s%v\t%v\n", metricsHeader, policy, s); err != nil {
		return errors.E(err, "error writing to metrics file:", path)
	}
	return nil
}
