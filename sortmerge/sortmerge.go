// Package sortmerge produces one coordinate-ordered variant stream from
// several inputs.
//
// The duplicate resolver downstream only compares neighboring records, so a
// SortMerger must place all records that share a (chrom, pos, ref, alt) key
// next to each other, and must emit header lines before any data line. How
// distinct keys are ordered is up to the implementation.
package sortmerge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/lookpath"
)

// SortMerger merges the variant files named by inputs into w.
type SortMerger interface {
	SortMerge(ctx context.Context, inputs []string, w io.Writer) error
}

// Exec runs an external sort script, such as sort_vcf.sh, with the input
// paths as arguments. The script's stdout is the merged stream. Its stderr is
// copied to the log.
type Exec struct {
	// Script is the program to run. A name without a path separator is
	// looked up in $PATH.
	Script string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// SortMerge implements SortMerger.
func (e Exec) SortMerge(ctx context.Context, inputs []string, w io.Writer) error {
	if e.Script == "" {
		return errors.E(errors.Invalid, "sortmerge: no sort script configured")
	}
	script := e.Script
	if !strings.ContainsRune(script, filepath.Separator) {
		var err error
		if script, err = lookpath.Look(map[string]string{"PATH": os.Getenv("PATH")}, script); err != nil {
			return errors.E(errors.NotExist, err, "sortmerge: locate", e.Script)
		}
	}
	cmd := exec.CommandContext(ctx, script, inputs...)
	cmd.Dir = e.Dir
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Printf("running %s %s", script, strings.Join(inputs, " "))
	err := cmd.Run()
	if stderr.Len() > 0 {
		log.Printf("%s: %s", filepath.Base(script), strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		return errors.E(err, fmt.Sprintf("%s %s failed", script, strings.Join(inputs, " ")))
	}
	return nil
}
