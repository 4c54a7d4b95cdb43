package cmd

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/log"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/cmdline"
)

const header = "##fileformat=VCFv4.1\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\n"

const (
	rec1 = "chr1\t50\t.\tA\tC\t.\t.\tDP=7\tGT:AO\t0/1:3\n"
	rec2 = "chr1\t100\t.\tG\tT\t.\t.\tDP=9\tGT\t1/1\n"
	rec3 = "chr2\t7\t.\tC\tA\t.\t.\tDP=2;DP=3\tGT\t./.\n"
	rec4 = "chr10\t7\t.\tC\tA\t.\t.\tDP=5\tGT\t0/1\n"
)

// run executes bio-vcf with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr}
	err := cmdline.ParseAndRun(newRoot(), env, args)
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, data string) string {
	path := filepath.Join(dir, name)
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func TestParseRegion(t *testing.T) {
	chrom, start, end, err := parseRegion("chr1:1,000-2,000")
	assert.NoError(t, err)
	expect.EQ(t, chrom, "chr1")
	expect.EQ(t, start, int64(1000))
	expect.EQ(t, end, int64(2000))

	chrom, start, end, err = parseRegion("HLA-A*01:01")
	expect.NotNil(t, err)

	chrom, start, end, err = parseRegion("chrX")
	assert.NoError(t, err)
	expect.EQ(t, chrom, "chrX")
	expect.EQ(t, start, int64(0))
	expect.EQ(t, end, int64(math.MaxInt64))

	for _, bad := range []string{"", "chr1:5", ":1-2", "chr1:9-3", "chr1:a-9"} {
		_, _, _, err := parseRegion(bad)
		expect.NotNil(t, err, bad)
	}
}

func TestChecksumOrderIndependent(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, checksum(strings.NewReader(header+rec1+rec2+rec3+rec4), &a))
	require.NoError(t, checksum(strings.NewReader(rec4+rec3+header+rec2+rec1), &b))
	require.Equal(t, a.String(), b.String())

	var sums []chromChecksum
	require.NoError(t, json.Unmarshal(a.Bytes(), &sums))
	require.Len(t, sums, 3)
	require.Equal(t, []string{"chr1", "chr2", "chr10"}, []string{sums[0].Name, sums[1].Name, sums[2].Name})
	require.Equal(t, int64(2), sums[0].NRecs)
	require.Equal(t, uint64(150), sums[0].SumPos)

	var c bytes.Buffer
	require.NoError(t, checksum(strings.NewReader(header+rec1+rec2+rec3), &c))
	require.NotEqual(t, a.String(), c.String())

	require.Error(t, checksum(strings.NewReader("chr1\tfifty\t.\tA\tC\n"), &c))
}

func TestCombineCommand(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeFile(t, tempDir, "a.vcf", header+rec1+rec2)
	b := writeFile(t, tempDir, "b.vcf", header+rec2+rec3)
	out := filepath.Join(tempDir, "combined.vcf")

	stdout, err := run(t, "combine", "-o", out, "-gzip=false", "-policy", "first", a, b)
	require.NoError(t, err)
	require.Equal(t, out+"\n", stdout)
	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, header+rec1+rec2+rec3, string(data))

	// KeepAll output has the same checksum as its inputs combined.
	stdout, err = run(t, "combine", "-o", out, "-gzip=false", a, b)
	require.NoError(t, err)
	got, err := run(t, "checksum", out)
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, checksum(strings.NewReader(header+rec1+rec2+rec2+rec3), &want))
	require.Equal(t, want.String(), got)

	_, err = run(t, "combine", "-o", out, a)
	require.Error(t, err)
	_, err = run(t, "combine", "-o", out, "-policy", "some", a, b)
	require.Error(t, err)
}

func TestCombineCommandConfig(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeFile(t, tempDir, "a.vcf", header+rec1+rec2)
	b := writeFile(t, tempDir, "b.vcf", header+rec2+rec3)
	cfg := writeFile(t, tempDir, "bio-vcf.toml", "policy = \"none\"\ngzip = true\n[compress]\nindex_interval = 1024\n")
	out := filepath.Join(tempDir, "combined.vcf")

	stdout, err := run(t, "combine", "-config", cfg, "-o", out, a, b)
	require.NoError(t, err)
	require.Equal(t, out+".gz\n", stdout)

	stdout, err = run(t, "index-query", out+".gz", "chr1:1-1000")
	require.NoError(t, err)
	require.Equal(t, rec1, stdout)

	stdout, err = run(t, "count", out+".gz")
	require.NoError(t, err)
	require.Equal(t, out+".gz\t2\n", stdout)
}

func TestLogLevelFlag(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeFile(t, tempDir, "a.vcf", header+rec1)
	b := writeFile(t, tempDir, "b.vcf", header+rec2)
	out := filepath.Join(tempDir, "combined.vcf")
	cfg := writeFile(t, tempDir, "bio-vcf.toml", "log_level = \"warn\"\n")

	_, err := run(t, "combine", "-log-level=debug", "-gzip=false", "-o", out, a, b)
	require.NoError(t, err)
	require.True(t, log.At(log.Debug))

	_, err = run(t, "combine", "-config", cfg, "-gzip=false", "-o", out, a, b)
	require.NoError(t, err)
	require.False(t, log.At(log.Info))

	_, err = run(t, "combine", "-config", cfg, "-log-level=info", "-gzip=false", "-o", out, a, b)
	require.NoError(t, err)
	require.True(t, log.At(log.Info))
	require.False(t, log.At(log.Debug))
}

func TestCleanCommand(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeFile(t, tempDir, "a.vcf", header+rec1+"chr1\t60\t.\tA\tC\n"+rec3)
	stdout, err := run(t, "clean", a)
	require.NoError(t, err)
	gzPath := filepath.Join(tempDir, "a.clean.vcf.gz")
	require.Equal(t, gzPath+"\t2\t1\n", stdout)

	stdout, err = run(t, "info", gzPath, "GT")
	require.NoError(t, err)
	require.Equal(t, "chr1\t50\t0/1\nchr2\t7\t0/1\n", stdout)
}

func TestInspectCommands(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeFile(t, tempDir, "a.vcf", header+rec1+rec2+rec3+rec4)

	stdout, err := run(t, "info", a, "AO")
	require.NoError(t, err)
	require.Equal(t, "chr1\t50\t3\nchr1\t100\t.\nchr2\t7\t.\nchr10\t7\t.\n", stdout)

	stdout, err = run(t, "info", a, "DP")
	require.NoError(t, err)
	require.Equal(t, "chr1\t50\t7\nchr1\t100\t9\nchr2\t7\t2\nchr10\t7\t5\n", stdout)

	stdout, err = run(t, "find", a, "chr1", "90")
	require.NoError(t, err)
	require.Equal(t, rec2, stdout)

	stdout, err = run(t, "find", a, "chr1", "500")
	require.NoError(t, err)
	require.Equal(t, "", stdout)

	stdout, err = run(t, "find", a, "chr2", "7", "C", "A")
	require.NoError(t, err)
	require.Equal(t, rec3, stdout)

	out := filepath.Join(tempDir, "chr1.vcf")
	_, err = run(t, "filter", "-chrom", "chr1", a, out)
	require.NoError(t, err)
	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, header+rec1+rec2, string(data))

	_, err = run(t, "filter", a, out)
	require.Error(t, err)
}
