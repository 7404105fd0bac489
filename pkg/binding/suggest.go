package binding

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggest returns the known command key closest to an unknown key, if any is
// similar enough to be a plausible typo.
func Suggest(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	upper := strings.ToUpper(key)
	best, bestDist := "", -1
	for _, k := range CommandKeys() {
		dist := levenshtein.ComputeDistance(upper, strings.ToUpper(k))
		if bestDist < 0 || dist < bestDist {
			best, bestDist = k, dist
		}
	}
	maxlen := len(key)
	if len(best) > maxlen {
		maxlen = len(best)
	}
	if float64(bestDist)/float64(maxlen) >= 0.4 {
		return "", false
	}
	return best, true
}
