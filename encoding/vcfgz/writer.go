// Package vcfgz compresses finished variant text files into the block
// gzipped (.bgzf) layout read by htslib tools, and builds a positional index
// (.gvi) over the result.
//
// A .bgzf file is a series of complete gzip members, each holding at most
// 64KB of uncompressed data and carrying its compressed size in a "BC" extra
// subfield, followed by a fixed 28-byte empty member as EOF terminator. A
// virtual offset (voffset) addresses a byte as
// (compressed block start << 16 | offset within the uncompressed block).
//
// For the format details see the SAM/BAM spec:
// https://samtools.github.io/hts-specs/SAMv1.pdf
package vcfgz

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultUncompressedBlockSize is the uncompressed payload of each block,
	// the value used by bgzip and biogo.
	DefaultUncompressedBlockSize = 0x0ff00

	// compressedBlockSize bounds the compressed size of one block.
	compressedBlockSize = 0x10000
)

var (
	// bgzfExtra is the gzip Extra field: subfield "BC" of length 2, whose
	// value (BSIZE) is patched after compression.
	bgzfExtra       = [...]byte{66, 67, 2, 0, 0, 0}
	bgzfExtraPrefix = [...]byte{66, 67, 2, 0}

	terminator = []byte{
		0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00, 0x42, 0x43,
		0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

// extraOffset is where the Extra field starts in a gzip member header.
const extraOffset = 12

// Writer compresses data into .bgzf blocks. Close must be called to flush
// the last block and append the terminator.
type Writer struct {
	level      int
	w          io.Writer
	gz         *gzip.Writer
	original   bytes.Buffer
	compressed bytes.Buffer
	coffset    uint64 // file position of the block currently being filled
}

// NewWriter returns a Writer with the given gzip compression level.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("bgzf: invalid compression level %d", level)
	}
	return &Writer{level: level, w: w}, nil
}

// Write appends buf to the payload.
func (w *Writer) Write(buf []byte) (int, error) {
	for i := 0; i < len(buf); {
		end := len(buf)
		if limit := i + DefaultUncompressedBlockSize - w.original.Len(); limit < end {
			end = limit
		}
		n, _ := w.original.Write(buf[i:end])
		i += n
		if err := w.flush(false); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// VOffset returns the virtual offset of the next byte to be written.
func (w *Writer) VOffset() uint64 {
	return w.coffset<<16 | uint64(w.original.Len())
}

// Close flushes the final block and writes the EOF terminator. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if err := w.flush(true); err != nil {
		return err
	}
	_, err := w.w.Write(terminator)
	return err
}

// flush compresses full blocks, or every buffered byte if all is set.
func (w *Writer) flush(all bool) error {
	for w.original.Len() >= DefaultUncompressedBlockSize || (all && w.original.Len() > 0) {
		if err := w.compressBlock(w.original.Next(DefaultUncompressedBlockSize)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) compressBlock(block []byte) error {
	if w.gz == nil {
		var err error
		if w.gz, err = gzip.NewWriterLevel(&w.compressed, w.level); err != nil {
			return err
		}
	} else {
		w.gz.Reset(&w.compressed)
	}
	w.gz.Header.Extra = append([]byte(nil), bgzfExtra[:]...)
	w.gz.Header.OS = 0xff
	if _, err := w.gz.Write(block); err != nil {
		return err
	}
	if err := w.gz.Close(); err != nil {
		return err
	}
	b := w.compressed.Bytes()
	bsize := len(b) - 1
	if bsize >= compressedBlockSize {
		return fmt.Errorf("bgzf compressed block is too big: %d > %d", bsize, compressedBlockSize)
	}
	if len(b) < extraOffset+len(bgzfExtra) ||
		!bytes.Equal(b[extraOffset:extraOffset+len(bgzfExtraPrefix)], bgzfExtraPrefix[:]) {
		return fmt.Errorf("bgzf: could not find extra field in gzip header")
	}
	b[extraOffset+4] = byte(bsize)
	b[extraOffset+5] = byte(bsize >> 8)
	sz := len(b)
	if _, err := w.compressed.WriteTo(w.w); err != nil {
		return err
	}
	w.coffset += uint64(sz)
	return nil
}
