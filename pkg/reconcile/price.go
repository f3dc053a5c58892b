package reconcile

import (
	"regexp"
	"strconv"
	"strings"
)

// Denominations lists the coin keys of a stored price breakdown, largest
// first.
var Denominations = []string{"pp", "gp", "sp", "cp"}

var priceGrammar = regexp.MustCompile(`^(([0-9 ]+)\s*gp)?[\s,]*(([0-9 ]+)\s*sp)?[\s,]*(([0-9 ]+)\s*cp)?`)

// Price is a parsed price breakdown. Denominations the raw text does not
// mention are absent.
type Price map[string]int

// ParsePrice reads "<N> gp[, <N> sp][, <N> cp]". Each denomination is
// optional and parsed independently; digits may be grouped with spaces.
// Platinum is never produced. Unparseable text yields an empty Price.
func ParsePrice(raw string) Price {
	p := Price{}
	m := priceGrammar.FindStringSubmatch(raw)
	if m == nil {
		return p
	}
	for denom, group := range map[string]int{"gp": 2, "sp": 4, "cp": 6} {
		digits := strings.ReplaceAll(m[group], " ", "")
		if digits == "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil {
			p[denom] = n
		}
	}
	return p
}

