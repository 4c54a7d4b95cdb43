// Package combine merges several variant files into one, resolving
// duplicate records under a dedup.Policy.
//
// The inputs are sort-merged into a single stream in which records sharing a
// (chrom, pos, ref, alt) key are adjacent, and that stream is filtered by a
// dedup.Resolver straight into the output file. The output is optionally
// compressed and indexed afterwards.
package combine

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/varcombine/dedup"
	"github.com/grailbio/varcombine/encoding/vcfgz"
	"github.com/grailbio/varcombine/sortmerge"
)

// MinInputs is the fewest inputs Combine accepts.
const MinInputs = 2

// Opts configures Combine.
type Opts struct {
	// Output is the path of the combined text file.
	Output string
	// Inputs lists the files to combine. At least MinInputs are required.
	Inputs []string
	// Policy selects duplicate handling. Zero means dedup.KeepAll.
	Policy dedup.Policy
	// Gzip compresses and indexes Output once it is complete. The text file
	// is then replaced by Output+".gz".
	Gzip bool
	// SortMerger produces the merged stream. Nil means sortmerge.Merge{},
	// which requires each input to be sorted already.
	SortMerger sortmerge.SortMerger
	// Compressor is used when Gzip is set. Nil means vcfgz.BGZF{}.
	Compressor vcfgz.Compressor
	// MetricsFile, if set, receives a summary of the duplicate resolution.
	MetricsFile string
}

// Combine merges opts.Inputs into opts.Output and returns the path of the
// final artifact: opts.Output, or the compressed file if opts.Gzip is set.
// On error nothing is left at either path.
func Combine(ctx context.Context, opts Opts) (string, error) {
	if len(opts.Inputs) < MinInputs {
		return "", errors.E(errors.Invalid, "combine: at least 2 input files required")
	}
	if opts.Output == "" {
		return "", errors.E(errors.Invalid, "combine: no output path")
	}
	policy := opts.Policy
	if policy == 0 {
		policy = dedup.KeepAll
	}
	sm := opts.SortMerger
	if sm == nil {
		sm = sortmerge.Merge{}
	}
	log.Printf("merging %s", strings.Join(opts.Inputs, " "))

	out, err := file.Create(ctx, opts.Output)
	if err != nil {
		return "", errors.E(err, "combine: create", opts.Output)
	}
	var stats dedup.Stats
	if err = run(ctx, sm, opts.Inputs, out.Writer(ctx), policy, &stats); err != nil {
		out.Discard(ctx)
		return "", errors.E(err, "combine", opts.Output)
	}
	if err = out.Close(ctx); err != nil {
		return "", err
	}
	if opts.MetricsFile != "" {
		if err = dedup.WriteMetrics(ctx, opts.MetricsFile, policy, stats); err != nil {
			return "", err
		}
	}
	if !opts.Gzip {
		return opts.Output, nil
	}
	c := opts.Compressor
	if c == nil {
		c = vcfgz.BGZF{}
	}
	gzPath, err := c.CompressIndex(ctx, opts.Output)
	if err != nil {
		_ = file.Remove(ctx, opts.Output)
		return "", err
	}
	return gzPath, nil
}

// run pipes the sort-merged inputs through a Resolver into w.
func run(ctx context.Context, sm sortmerge.SortMerger, inputs []string, w io.Writer, policy dedup.Policy, stats *dedup.Stats) error {
	pr, pw := io.Pipe()
	return traverse.Each(2, func(i int) error {
		if i == 0 {
			err := sm.SortMerge(ctx, inputs, pw)
			pw.CloseWithError(err) // nolint: errcheck
			return err
		}
		var err error
		*stats, err = dedup.Resolve(ctx, pr, w, policy)
		// Unblocks the merger if resolution stopped early.
		pr.CloseWithError(err) // nolint: errcheck
		return err
	})
}
