package classify

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	trailingDot    = regexp.MustCompile(`(\s*[.])$`)
	trailingDigit  = regexp.MustCompile(`(\s+\d)$`)
	advMarker      = regexp.MustCompile(`\s*adv(\s+\d+)?$`)
	bhavMarker     = regexp.MustCompile(`\s+bhav`)
	fixtureTag     = regexp.MustCompile(`\(\s*[A-Z]+\s+vs\s+[A-Z]+\s*\)`)
	trailingInning = regexp.MustCompile(`\d$`)
)

// StripNoise removes trailing decoration from a session label so the
// statistic handlers see only the phrase and its parameters. The order
// matters: the trailing dot must go before the trailing digit check, or a
// label like "1st inning runs 2." would keep its inning marker hidden.
func StripNoise(label string) string {
	label = trailingDot.ReplaceAllString(label, "")
	label = trailingDigit.ReplaceAllString(label, "")
	label = advMarker.ReplaceAllString(label, "")
	label = bhavMarker.ReplaceAllString(label, " ")
	label = fixtureTag.ReplaceAllString(label, "")
	return strings.TrimSpace(label)
}

// TrailingInning reads the innings-pair marker off the end of a raw label.
// Returns 0 when the label has no trailing digit; handlers treat 0 as the
// first innings pair and 2 as the second, and reject anything else.
func TrailingInning(label string) int {
	m := trailingInning.FindString(strings.TrimSpace(label))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
