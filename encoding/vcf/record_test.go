package vcf_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/varcombine/encoding/vcf"
)

const sample = `##fileformat=VCFv4.1
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NA12878
chr1	100	rs1	A	C	50	PASS	DP=10;AF=0.5	GT:AO	0/1:23

chr1  200   .  G  T  .  .  DP=3
chr2	5	.	T	TA	.	.	.	GT	./.
`

func TestParse(t *testing.T) {
	r := vcf.Parse("chr1  100\trs1   A\tC 50 PASS DP=1 GT 0/1 1/1\n")
	expect.EQ(t, len(r), 11)
	expect.EQ(t, r.Chrom(), "chr1")
	expect.EQ(t, r.Pos(), "100")
	expect.EQ(t, r.ID(), "rs1")
	expect.EQ(t, r.Ref(), "A")
	expect.EQ(t, r.Alt(), "C")
	expect.EQ(t, r.Qual(), "50")
	expect.EQ(t, r.Filter(), "PASS")
	info, ok := r.Info()
	expect.True(t, ok)
	expect.EQ(t, info, "DP=1")
	format, ok := r.Format()
	expect.True(t, ok)
	expect.EQ(t, format, "GT")
	expect.EQ(t, r.Samples(), []string{"0/1", "1/1"})
	expect.EQ(t, r.String(), "chr1\t100\trs1\tA\tC\t50\tPASS\tDP=1\tGT\t0/1\t1/1")

	short := vcf.Parse("chr1 100 . A C")
	_, ok = short.Info()
	expect.False(t, ok)
	_, ok = short.Format()
	expect.False(t, ok)
	expect.EQ(t, len(short.Samples()), 0)
	expect.EQ(t, short.Filter(), "")
}

func TestIsHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"##fileformat=VCFv4.1", true},
		{"#CHROM\tPOS", true},
		{"  #indented", true},
		{"chr1\t1\t#\tA\tC", false},
		{"", false},
	}
	for _, tt := range tests {
		expect.EQ(t, vcf.Parse(tt.line).IsHeader(), tt.want, "line %q", tt.line)
		expect.EQ(t, vcf.IsHeaderLine(tt.line), tt.want, "line %q", tt.line)
	}
}

func TestKey(t *testing.T) {
	k, err := vcf.Parse("chr1 0100 x A C 1 2").Key()
	assert.NoError(t, err)
	// Pos is compared as text: no numeric normalization.
	expect.EQ(t, k, vcf.DuplicateKey{Chrom: "chr1", Pos: "0100", Ref: "A", Alt: "C"})

	k2, err := vcf.Parse("chr1\t0100\ty\tA\tC").Key()
	assert.NoError(t, err)
	expect.EQ(t, k, k2)

	_, err = vcf.Parse("chr1 100 . A").Key()
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestScanner(t *testing.T) {
	sc := vcf.NewScanner(strings.NewReader(sample))
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Line())
	}
	assert.NoError(t, sc.Err())
	assert.EQ(t, len(lines), 5)
	expect.EQ(t, lines[3], "chr1  200   .  G  T  .  .  DP=3")

	sc = vcf.NewScanner(strings.NewReader(sample))
	for i := 0; i < 4; i++ {
		assert.True(t, sc.Scan())
	}
	expect.EQ(t, sc.LineNumber(), 5)
	expect.EQ(t, sc.Record().Ref(), "G")
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := vcf.NewWriter(&buf)
	assert.NoError(t, w.WriteLine("#h"))
	assert.NoError(t, w.Write(vcf.Record{"a", "b", "c"}))
	expect.EQ(t, buf.String(), "#h\na\tb\tc\n")
}

func TestCountVariants(t *testing.T) {
	n, err := vcf.CountVariants(strings.NewReader(sample))
	assert.NoError(t, err)
	expect.EQ(t, n, 3)
}

func TestFilterChrom(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, vcf.FilterChrom(strings.NewReader(sample), &buf, "chr2"))
	expect.EQ(t, buf.String(), `##fileformat=VCFv4.1
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NA12878
chr2	5	.	T	TA	.	.	.	GT	./.
`)
}

func TestClosestVariant(t *testing.T) {
	rec, err := vcf.ClosestVariant(strings.NewReader(sample), "chr1", 180)
	assert.NoError(t, err)
	expect.EQ(t, rec.Pos(), "200")

	rec, err = vcf.ClosestVariant(strings.NewReader(sample), "chr1", 150)
	assert.NoError(t, err)
	expect.EQ(t, rec.Pos(), "100")

	rec, err = vcf.ClosestVariant(strings.NewReader(sample), "chr2", 105)
	assert.NoError(t, err)
	expect.True(t, rec == nil)
}

func TestMatchingAltRef(t *testing.T) {
	rec, err := vcf.MatchingAltRef(strings.NewReader(sample),
		vcf.DuplicateKey{Chrom: "chr2", Pos: "5", Ref: "T", Alt: "TA"})
	assert.NoError(t, err)
	expect.EQ(t, rec.Samples(), []string{"./."})

	rec, err = vcf.MatchingAltRef(strings.NewReader(sample),
		vcf.DuplicateKey{Chrom: "chr2", Pos: "5", Ref: "T", Alt: "G"})
	assert.NoError(t, err)
	expect.True(t, rec == nil)
}
