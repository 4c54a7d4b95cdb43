package cmd

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"sort"
	"strconv"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/varcombine/encoding/vcf"
	"github.com/grailbio/varcombine/sortmerge"
)

// chromChecksum summarizes the records of one chromosome. Every sum is
// commutative, so two files with the same records in any order have equal
// checksums.
type chromChecksum struct {
	// Name is the chromosome.
	Name string
	// NRecs is the number of data records.
	NRecs int64
	// SumPos is the sum of the POS values.
	SumPos uint64
	// SumKey is the sum of the hashes of (CHROM, POS, REF, ALT).
	SumKey uint64
	// SumRecord is the sum of the hashes of the whole tab-joined records.
	SumRecord uint64
}

func hashField(h hash.Hash64, pos [8]byte, value string) uint64 {
	h.Reset()
	h.Write(pos[:])           // nolint: errcheck
	io.WriteString(h, value) // nolint: errcheck
	return h.Sum64()
}

func (c *chromChecksum) add(rec vcf.Record, h hash.Hash64) error {
	p, err := strconv.ParseUint(rec.Pos(), 10, 64)
	if err != nil {
		return errors.E(errors.Invalid, err, "checksum: bad position")
	}
	c.NRecs++
	c.SumPos += p
	pos := [8]byte{}
	binary.LittleEndian.PutUint64(pos[:], p)
	c.SumKey += hashField(h, pos, strings.Join([]string{rec.Chrom(), rec.Ref(), rec.Alt()}, "\t"))
	c.SumRecord += hashField(h, pos, rec.String())
	return nil
}

// checksum writes the per-chromosome checksums of the data records in r to w
// as indented JSON, in natural chromosome order.
func checksum(r io.Reader, w io.Writer) error {
	h := seahash.New()
	byChrom := map[string]*chromChecksum{}
	sc := vcf.NewScanner(r)
	for sc.Scan() {
		rec := sc.Record()
		if rec.IsHeader() {
			continue
		}
		c := byChrom[rec.Chrom()]
		if c == nil {
			c = &chromChecksum{Name: rec.Chrom()}
			byChrom[rec.Chrom()] = c
		}
		if err := c.add(rec, h); err != nil {
			return errors.E(err, fmt.Sprintf("line %d", sc.LineNumber()))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	sums := make([]chromChecksum, 0, len(byChrom))
	for _, c := range byChrom {
		sums = append(sums, *c)
	}
	sort.Slice(sums, func(i, j int) bool {
		return sortmerge.CompareChrom(sums[i].Name, sums[j].Name) < 0
	})
	data, err := json.MarshalIndent(sums, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
