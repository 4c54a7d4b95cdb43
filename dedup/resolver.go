// Package dedup removes duplicate variant records from a merged stream.
//
// Two data records are duplicates iff their (chrom, pos, ref, alt) keys are
// textually equal. Duplicates are detected only against the immediately
// preceding data record, so the input must group equal keys contiguously.
// A coordinate-sorted merge does this; the resolver does not check it. A
// key that reappears after an intervening key starts a new run and is not
// recognized as a duplicate.
//
// A run is a maximal block of consecutive records sharing one key. Its
// anchor is the first record of the block. Each policy decides once per run,
// when the run ends, whether to emit the anchor:
//
//	KeepAll    every line passes through; no runs are tracked.
//	KeepFirst  the anchor of every run is emitted.
//	KeepNone   the anchor is emitted only if the run has length one.
//
// Header lines are emitted as soon as they are read. Survivors keep their
// input order.
package dedup

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/varcombine/encoding/vcf"
)

// Policy selects how runs of duplicate records are resolved.
type Policy int

const (
	// KeepAll passes every record through unchanged.
	KeepAll Policy = iota + 1
	// KeepFirst emits the first record of each run.
	KeepFirst
	// KeepNone drops every record belonging to a run of two or more.
	KeepNone
)

// ParsePolicy converts "all", "first" or "none" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "all":
		return KeepAll, nil
	case "first":
		return KeepFirst, nil
	case "none":
		return KeepNone, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown duplicate policy %q, want all, first or none", s))
}

func (p Policy) String() string {
	switch p {
	case KeepAll:
		return "all"
	case KeepFirst:
		return "first"
	case KeepNone:
		return "none"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// run is the resolver state: the anchor of the current run and how many
// records have joined it so far. A zero run has no anchor.
type run struct {
	anchor string
	key    vcf.DuplicateKey
	length int
}

// Resolver is a streaming duplicate filter. Feed it lines with Add and call
// Flush once at the end of input. Surviving lines are passed to the emit
// function in input order. Resolver is not threadsafe.
type Resolver struct {
	policy Policy
	emit   func(line string) error
	cur    run
	stats  Stats
}

// NewResolver creates a Resolver that passes survivors to emit.
func NewResolver(policy Policy, emit func(line string) error) *Resolver {
	return &Resolver{policy: policy, emit: emit}
}

// Add consumes one line. Header lines are emitted immediately. A data line
// with fewer than five fields is a fatal error with kind errors.Invalid.
func (r *Resolver) Add(line string) error {
	rec := vcf.Parse(line)
	if rec.IsHeader() {
		r.stats.Headers++
		return r.emit(line)
	}
	r.stats.Records++
	if r.policy == KeepAll {
		r.stats.Emitted++
		return r.emit(line)
	}
	key, err := rec.Key()
	if err != nil {
		return err
	}
	next, done := r.cur.advance(line, key)
	if done {
		if err := r.decide(r.cur); err != nil {
			return err
		}
	}
	r.cur = next
	return nil
}

// advance returns the state after a data line with the given key. done is
// true when the line ends the current run, in which case the returned state
// is a fresh run anchored at line.
func (c run) advance(line string, key vcf.DuplicateKey) (next run, done bool) {
	switch {
	case c.length == 0:
		return run{anchor: line, key: key, length: 1}, false
	case key == c.key:
		c.length++
		return c, false
	default:
		return run{anchor: line, key: key, length: 1}, true
	}
}

// Flush resolves the final run. The Resolver must not be used afterward.
func (r *Resolver) Flush() error {
	if r.cur.length == 0 {
		return nil
	}
	err := r.decide(r.cur)
	r.cur = run{}
	return err
}

func (r *Resolver) decide(c run) error {
	r.stats.Runs++
	if c.length > r.stats.MaxRunLength {
		r.stats.MaxRunLength = c.length
	}
	if r.policy == KeepFirst || (r.policy == KeepNone && c.length == 1) {
		r.stats.Emitted++
		r.stats.Discarded += c.length - 1
		return r.emit(c.anchor)
	}
	r.stats.Discarded += c.length
	if c.length > 1 {
		log.Debug.Printf("%s duplicated %d times, discarded", c.anchor, c.length)
	}
	return nil
}

// Stats returns counters accumulated so far.
func (r *Resolver) Stats() Stats { return r.stats }
