package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseRegion parses "chrom:start-end", a 1-based closed interval as in
// samtools, or a bare "chrom" meaning the whole chromosome.
func parseRegion(s string) (chrom string, start, end int64, err error) {
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		if s == "" {
			return "", 0, 0, fmt.Errorf("empty region")
		}
		return s, 0, math.MaxInt64, nil
	}
	chrom = s[:colon]
	rng := strings.Replace(s[colon+1:], ",", "", -1)
	dash := strings.IndexByte(rng, '-')
	if chrom == "" || dash < 0 {
		return "", 0, 0, fmt.Errorf("region %q: want chrom:start-end", s)
	}
	if start, err = strconv.ParseInt(rng[:dash], 10, 64); err != nil {
		return "", 0, 0, fmt.Errorf("region %q: %v", s, err)
	}
	if end, err = strconv.ParseInt(rng[dash+1:], 10, 64); err != nil {
		return "", 0, 0, fmt.Errorf("region %q: %v", s, err)
	}
	if start > end {
		return "", 0, 0, fmt.Errorf("region %q: start is after end", s)
	}
	return chrom, start, end, nil
}
