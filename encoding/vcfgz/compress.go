package vcfgz

import (
	"context"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/varcombine/encoding/vcf"
	"github.com/klauspost/compress/gzip"
)

// IndexSuffix is appended to the compressed file name to name its index.
const IndexSuffix = ".gvi"

// Compressor turns a finished text file into an indexed compressed
// artifact and returns the artifact's path.
type Compressor interface {
	CompressIndex(ctx context.Context, path string) (string, error)
}

// BGZF is the default Compressor. It writes path+".gz" in .bgzf form and
// path+".gz.gvi" next to it.
type BGZF struct {
	// Level is the gzip level. Nil means gzip.DefaultCompression; a level
	// of gzip.NoCompression (0) stores blocks as is.
	Level *int
	// Interval is the index entry spacing in compressed bytes. Zero means
	// DefaultIndexInterval.
	Interval int
	// KeepInput retains the text input. By default it is removed once the
	// compressed file and index are complete.
	KeepInput bool
}

// CompressIndex compresses and indexes path with default options.
func CompressIndex(ctx context.Context, path string) (string, error) {
	return BGZF{}.CompressIndex(ctx, path)
}

// CompressIndex implements Compressor. Outputs are written atomically: on
// any error neither the .gz nor the .gvi file is left behind, and the input
// is untouched.
func (c BGZF) CompressIndex(ctx context.Context, path string) (gzPath string, err error) {
	level := gzip.DefaultCompression
	if c.Level != nil {
		level = *c.Level
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultIndexInterval
	}
	gzPath = path + ".gz"
	in, err := file.Open(ctx, path)
	if err != nil {
		return "", errors.E(err, "compress: open", path)
	}
	defer in.Close(ctx) // nolint: errcheck

	out, err := file.Create(ctx, gzPath)
	if err != nil {
		return "", errors.E(err, "compress: create", gzPath)
	}
	idxOut, err := file.Create(ctx, gzPath+IndexSuffix)
	if err != nil {
		out.Discard(ctx)
		return "", errors.E(err, "compress: create", gzPath+IndexSuffix)
	}
	if err = compressIndex(in.Reader(ctx), out.Writer(ctx), idxOut.Writer(ctx), level, interval); err != nil {
		out.Discard(ctx)
		idxOut.Discard(ctx)
		return "", errors.E(err, "compress", path)
	}
	e := errors.Once{}
	e.Set(out.Close(ctx))
	e.Set(idxOut.Close(ctx))
	if err = e.Err(); err != nil {
		return "", err
	}
	if !c.KeepInput {
		if err = file.Remove(ctx, path); err != nil {
			return "", err
		}
	}
	log.Printf("compressed %s to %s", path, gzPath)
	return gzPath, nil
}

func compressIndex(r io.Reader, gzw, idxw io.Writer, level, interval int) error {
	w, err := NewWriter(gzw, level)
	if err != nil {
		return err
	}
	idx, err := newIndexWriter(idxw, interval)
	if err != nil {
		return err
	}
	sc := vcf.NewScanner(r)
	for sc.Scan() {
		line := sc.Line()
		if !vcf.IsHeaderLine(line) {
			rec := sc.Record()
			pos, err := strconv.ParseInt(rec.Pos(), 10, 64)
			if err != nil {
				return errors.E(errors.Invalid, err, "line", strconv.Itoa(sc.LineNumber()))
			}
			if err := idx.add(rec.Chrom(), pos, w.VOffset()); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
		if _, err := w.Write(newline); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return idx.close()
}

var newline = []byte{'\n'}

// Query returns the data lines of the indexed file gzPath that lie on chrom
// with start <= pos <= end. The index is read from gzPath+".gvi".
func Query(ctx context.Context, gzPath, chrom string, start, end int64) (lines []string, err error) {
	idxFile, err := file.Open(ctx, gzPath+IndexSuffix)
	if err != nil {
		return nil, err
	}
	idx, err := ReadIndex(idxFile.Reader(ctx))
	if cerr := idxFile.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.E(err, "read index", gzPath+IndexSuffix)
	}
	voffset, ok := idx.Offset(chrom, start)
	if !ok {
		return nil, nil
	}
	in, err := file.Open(ctx, gzPath)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	bz, err := bgzf.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, err
	}
	defer bz.Close() // nolint: errcheck
	if err = bz.Seek(ToBGZFOffset(voffset)); err != nil {
		return nil, err
	}
	sc := vcf.NewScanner(bz)
	for sc.Scan() {
		rec := sc.Record()
		if rec.IsHeader() {
			continue
		}
		if rec.Chrom() != chrom {
			break
		}
		pos, err := strconv.ParseInt(rec.Pos(), 10, 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, gzPath)
		}
		if pos > end {
			break
		}
		if pos >= start {
			lines = append(lines, sc.Line())
		}
	}
	return lines, sc.Err()
}
