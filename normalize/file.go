package normalize

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/varcombine/encoding/vcf"
	"github.com/grailbio/varcombine/encoding/vcfgz"
	"github.com/grailbio/varcombine/sortmerge"
)

// FileOpts configures CleanFile.
type FileOpts struct {
	// OutDir is where the clean file is written. Empty means the directory
	// of the input.
	OutDir string
	// Sorter, if set, sorts the clean file before compression.
	Sorter sortmerge.SortMerger
	// Compressor compresses and indexes the result. Nil means
	// vcfgz.BGZF{}.
	Compressor vcfgz.Compressor
}

// CleanPath returns the name of the clean file for vcfPath: the base name
// with a trailing ".gz" and then its extension removed, plus ".clean" and
// that extension, in dir. For example "calls.vcf.gz" becomes
// "calls.clean.vcf".
func CleanPath(vcfPath, dir string) string {
	if dir == "" {
		dir = filepath.Dir(vcfPath)
	}
	base := filepath.Base(vcfPath)
	base = strings.TrimSuffix(base, ".gz")
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".clean"+ext)
}

// CleanFile normalizes every record of vcfPath into CleanPath(vcfPath,
// opts.OutDir), optionally sorts it, then compresses and indexes it. It
// returns the path of the compressed file along with the normalization
// result. The clean text file is written atomically and is consumed by the
// compressor. On failure no intermediate file is left behind.
func CleanFile(ctx context.Context, vcfPath string, opts FileOpts) (string, Result, error) {
	cleanPath := CleanPath(vcfPath, opts.OutDir)
	target := cleanPath
	if opts.Sorter != nil {
		target = cleanPath + ".unsorted"
	}
	res, err := writeClean(ctx, vcfPath, target)
	if err != nil {
		return "", res, err
	}
	if len(res.Dropped) > 0 {
		log.Printf("%s: dropped %d records with <%d fields", vcfPath, len(res.Dropped), MinFields)
	}
	if opts.Sorter != nil {
		if err := sortFile(ctx, opts.Sorter, target, cleanPath); err != nil {
			_ = file.Remove(ctx, target)
			return "", res, err
		}
	}
	c := opts.Compressor
	if c == nil {
		c = vcfgz.BGZF{}
	}
	gzPath, err := c.CompressIndex(ctx, cleanPath)
	if err != nil {
		_ = file.Remove(ctx, cleanPath)
		return "", res, err
	}
	return gzPath, res, nil
}

func writeClean(ctx context.Context, inPath, outPath string) (Result, error) {
	in, err := vcf.Open(ctx, inPath)
	if err != nil {
		return Result{}, err
	}
	defer in.Close() // nolint: errcheck
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return Result{}, errors.E(err, "create", outPath)
	}
	res, err := Stream(ctx, in, out.Writer(ctx))
	if err != nil {
		out.Discard(ctx)
		return res, errors.E(err, "normalize", inPath)
	}
	return res, out.Close(ctx)
}

// sortFile sorts src into dst and removes src.
func sortFile(ctx context.Context, s sortmerge.SortMerger, src, dst string) error {
	out, err := file.Create(ctx, dst)
	if err != nil {
		return err
	}
	if err := s.SortMerge(ctx, []string{src}, out.Writer(ctx)); err != nil {
		out.Discard(ctx)
		return errors.E(err, "sort", src)
	}
	if err := out.Close(ctx); err != nil {
		return err
	}
	return file.Remove(ctx, src)
}
