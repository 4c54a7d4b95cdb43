package sortmerge

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/varcombine/encoding/vcf"
)

// Merge is an in-process SortMerger for inputs that are each already sorted
// by (chrom, pos), with chromosomes in CompareChrom order. Header lines of
// the first input are written first; headers of the other inputs are
// dropped. Data records are then merged by (chrom, pos). All records at one
// position, from every input, are gathered and stably ordered by the text of
// (pos, ref, alt) before they are written, so records sharing a key end up
// adjacent even when POS is spelled differently, as in "01" and "1".
//
// An input that goes backwards is rejected with an errors.Invalid error.
type Merge struct {
	// MitoFirst puts M and MT before the numbered chromosomes, as in
	// hg19-ordered files. By default they come after Y.
	MitoFirst bool
}

type position struct {
	chrom string
	pos   int
}

func (m Merge) compareChrom(a, b string) int {
	if m.MitoFirst {
		if ma, mb := isMito(a), isMito(b); ma != mb {
			if ma {
				return -1
			}
			return 1
		}
	}
	return CompareChrom(a, b)
}

func (m Merge) compare(p, q position) int {
	if c := m.compareChrom(p.chrom, q.chrom); c != 0 {
		return c
	}
	return p.pos - q.pos
}

// mergeLeaf is one input in the merge tree. Its key is the position of the
// record it has buffered.
type mergeLeaf struct {
	m    Merge
	seq  int
	path string
	sc   *vcf.Scanner
	rec  vcf.Record
	line string
	pos  position
	done bool
}

func (l *mergeLeaf) Compare(c llrb.Comparable) int {
	l1 := c.(*mergeLeaf)
	if c := l.m.compare(l.pos, l1.pos); c != 0 {
		return c
	}
	return l.seq - l1.seq
}

// scan advances l to its next data record, checking that the input is
// sorted. Header lines are passed to hdr.
func (l *mergeLeaf) scan(hdr func(string) error) error {
	for l.sc.Scan() {
		rec := l.sc.Record()
		if rec.IsHeader() {
			if err := hdr(l.sc.Line()); err != nil {
				return err
			}
			continue
		}
		if _, err := rec.Key(); err != nil {
			return errors.E(err, fmt.Sprintf("%s:%d", l.path, l.sc.LineNumber()))
		}
		p, err := strconv.Atoi(rec.Pos())
		if err != nil {
			return errors.E(errors.Invalid, err, fmt.Sprintf("%s:%d: bad position", l.path, l.sc.LineNumber()))
		}
		next := position{rec.Chrom(), p}
		if l.rec != nil && l.m.compare(next, l.pos) < 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("%s:%d: input is not sorted: %s:%d after %s:%d",
				l.path, l.sc.LineNumber(), next.chrom, next.pos, l.pos.chrom, l.pos.pos))
		}
		l.rec, l.line, l.pos = rec, l.sc.Line(), next
		return nil
	}
	l.done = true
	if err := l.sc.Err(); err != nil {
		return errors.E(err, l.path)
	}
	return nil
}

type pending struct {
	rec  vcf.Record
	line string
}

// SortMerge implements SortMerger.
func (m Merge) SortMerge(ctx context.Context, inputs []string, w io.Writer) (err error) {
	out := vcf.NewWriter(w)
	var leaves []*mergeLeaf
	for i, path := range inputs {
		in, oerr := vcf.Open(ctx, path)
		if oerr != nil {
			return oerr
		}
		defer func() {
			if err2 := in.Close(); err == nil && err2 != nil {
				err = err2
			}
		}()
		leaves = append(leaves, &mergeLeaf{m: m, seq: i, path: path, sc: vcf.NewScanner(in)})
	}
	// The first input's headers are read to completion before anything
	// else is written.
	tree := llrb.Tree{}
	for _, l := range leaves {
		hdr := func(string) error { return nil }
		if l.seq == 0 {
			hdr = out.WriteLine
		}
		if err := l.scan(hdr); err != nil {
			return err
		}
		if !l.done {
			tree.Insert(l)
		}
	}
	dropHeader := func(string) error { return nil }
	var (
		group []pending
		n     int
	)
	for tree.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		at := tree.Min().(*mergeLeaf).pos
		group = group[:0]
		// Drain every leaf positioned at "at".
		for tree.Len() > 0 {
			top := tree.Min().(*mergeLeaf)
			if top.pos != at {
				break
			}
			tree.DeleteMin()
			for !top.done && top.pos == at {
				group = append(group, pending{top.rec, top.line})
				if err := top.scan(dropHeader); err != nil {
					return err
				}
			}
			if !top.done {
				tree.Insert(top)
			}
		}
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i].rec, group[j].rec
			if a.Pos() != b.Pos() {
				return a.Pos() < b.Pos()
			}
			if a.Ref() != b.Ref() {
				return a.Ref() < b.Ref()
			}
			return a.Alt() < b.Alt()
		})
		for _, p := range group {
			if err := out.WriteLine(p.line); err != nil {
				return err
			}
		}
		n += len(group)
	}
	log.Printf("merged %d records from %d inputs", n, len(inputs))
	return out.Err()
}
