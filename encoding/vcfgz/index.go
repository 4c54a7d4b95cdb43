package vcfgz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

// Index maps genomic positions to voffsets in a .bgzf variant file. The
// on-disk .gvi form is gzip compressed: a 16-byte magic ("GVI1" followed by
// 12 fixed random bytes), then one record per entry, little endian:
//
//	uint16 length of the chromosome name, then the name
//	int64  position, as written in the POS column
//	uint64 voffset of the first line with that (chrom, pos)
//
// There is an entry for the first data line of every chromosome, and one for
// the first line of a new position after roughly every DefaultIndexInterval
// bytes of compressed output. Entries are in file order.
type Index []IndexEntry

// IndexEntry is one entry of an Index.
type IndexEntry struct {
	Chrom   string
	Pos     int64
	VOffset uint64
}

// DefaultIndexInterval is the default spacing of index entries, in
// compressed bytes.
const DefaultIndexInterval = 64 << 10

var gviMagic = []byte{
	'G', 'V', 'I', '1', 0x5a, 0x17, 0xc3, 0x90,
	0x4e, 0x2b, 0xd1, 0x06, 0x7f, 0x38, 0xa4, 0xe9,
}

// ToBGZFOffset converts a voffset to a bgzf.Offset.
func ToBGZFOffset(voffset uint64) bgzf.Offset {
	return bgzf.Offset{File: int64(voffset >> 16), Block: uint16(voffset & 0xffff)}
}

// Offset returns the voffset from which reading forward reaches the first
// line of chrom at or after pos. ok is false if chrom has no records.
func (idx Index) Offset(chrom string, pos int64) (voffset uint64, ok bool) {
	for _, e := range idx {
		if e.Chrom != chrom {
			if ok {
				break
			}
			continue
		}
		if ok && e.Pos > pos {
			break
		}
		voffset, ok = e.VOffset, true
	}
	return voffset, ok
}

// indexWriter writes a .gvi file.
type indexWriter struct {
	gz       *gzip.Writer
	interval uint64

	started    bool
	prevChrom  string
	prevPos    int64
	prevOffset uint64 // compressed file offset of the last entry
}

func newIndexWriter(w io.Writer, interval int) (*indexWriter, error) {
	iw := &indexWriter{gz: gzip.NewWriter(w), interval: uint64(interval)}
	if _, err := iw.gz.Write(gviMagic); err != nil {
		return nil, err
	}
	return iw, nil
}

// add records a data line at (chrom, pos) starting at voffset, and writes an
// entry if one is due.
func (w *indexWriter) add(chrom string, pos int64, voffset uint64) error {
	fileOffset := voffset >> 16
	switch {
	case !w.started || chrom != w.prevChrom:
	case pos != w.prevPos && fileOffset-w.prevOffset >= w.interval:
	default:
		w.prevPos = pos
		return nil
	}
	w.started = true
	w.prevChrom, w.prevPos, w.prevOffset = chrom, pos, fileOffset
	return w.append(IndexEntry{Chrom: chrom, Pos: pos, VOffset: voffset})
}

func (w *indexWriter) append(e IndexEntry) error {
	if len(e.Chrom) > 0xffff {
		return fmt.Errorf("gvi: chromosome name too long: %d bytes", len(e.Chrom))
	}
	var buf [8]byte
	binary.LittleEndian.PutUint16(buf[:2], uint16(len(e.Chrom)))
	if _, err := w.gz.Write(buf[:2]); err != nil {
		return err
	}
	if _, err := io.WriteString(w.gz, e.Chrom); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(e.Pos))
	if _, err := w.gz.Write(buf[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf[:], e.VOffset)
	_, err := w.gz.Write(buf[:])
	return err
}

func (w *indexWriter) close() error {
	return w.gz.Close()
}

// ReadIndex parses a .gvi file.
func ReadIndex(r io.Reader) (idx Index, err error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := gz.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	magic := make([]byte, len(gviMagic))
	if _, err = io.ReadFull(gz, magic); err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, gviMagic) {
		return nil, fmt.Errorf("unexpected gvi magic: %v should be %v", magic, gviMagic)
	}
	var buf [8]byte
	for {
		if _, err = io.ReadFull(gz, buf[:2]); err == io.EOF {
			return idx, nil
		} else if err != nil {
			return nil, err
		}
		name := make([]byte, binary.LittleEndian.Uint16(buf[:2]))
		if _, err = io.ReadFull(gz, name); err != nil {
			return nil, fmt.Errorf("truncated gvi entry: %v", err)
		}
		var e IndexEntry
		e.Chrom = string(name)
		if _, err = io.ReadFull(gz, buf[:]); err != nil {
			return nil, fmt.Errorf("truncated gvi entry: %v", err)
		}
		e.Pos = int64(binary.LittleEndian.Uint64(buf[:]))
		if _, err = io.ReadFull(gz, buf[:]); err != nil {
			return nil, fmt.Errorf("truncated gvi entry: %v", err)
		}
		e.VOffset = binary.LittleEndian.Uint64(buf[:])
		if n := len(idx); n > 0 && idx[n-1].VOffset >= e.VOffset {
			return nil, fmt.Errorf("gvi voffsets are out of order: %v must be less than %v", idx[n-1], e)
		}
		idx = append(idx, e)
	}
}
