package sortmerge

import (
	"strconv"
	"strings"
)

// chromRank places the named (non-numeric) human chromosomes after the
// numbered ones.
var chromRank = map[string]int{"X": 1, "Y": 2, "M": 3, "MT": 3}

// CompareChrom orders chromosome names the way coordinate-sorted VCFs
// usually are: an optional "chr" prefix is ignored, numbered chromosomes
// come first in numeric order, then X, Y and M/MT, then everything else
// lexically. It returns a negative number, zero or a positive number.
func CompareChrom(a, b string) int {
	if a == b {
		return 0
	}
	ka, na, ra := chromKey(a)
	kb, nb, rb := chromKey(b)
	if ka != kb {
		return ka - kb
	}
	switch ka {
	case 0:
		if na != nb {
			return na - nb
		}
	case 1:
		if ra != rb {
			return ra - rb
		}
	}
	return strings.Compare(a, b)
}

// chromKey returns the class of name (0 numbered, 1 X/Y/M, 2 other) and its
// number or rank within the class.
func chromKey(name string) (class, num, rank int) {
	s := strings.TrimPrefix(name, "chr")
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return 0, n, 0
	}
	if r, ok := chromRank[s]; ok {
		return 1, 0, r
	}
	return 2, 0, 0
}

func isMito(name string) bool {
	s := strings.TrimPrefix(name, "chr")
	return s == "M" || s == "MT"
}
