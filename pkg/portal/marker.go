package portal

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The portal renders its outcome strings inconsistently: accented and
// unaccented variants, stray whitespace, changing capitalization.
// All matching goes through Fold so every variant collapses to one
// canonical form, and the marker lists below are the single place
// outcome text is defined.

// terminalSuccessMarkers are the phrases that mean money moved. Their
// presence in any frame is the sole authority for success.
var terminalSuccessMarkers = []string{
	"pagamento efetuado com sucesso",
	"pagamento realizado com sucesso",
}

// alreadyPaidMarkers mean the portal refused the payment because the
// CE is already settled.
var alreadyPaidMarkers = []string{
	"ce ja liquidado",
	"pagamento ja efetuado para este ce",
	"afrmm ja recolhido",
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold canonicalizes portal text for marker comparison: accents
// stripped, lowercased, inner whitespace collapsed to single spaces.
func Fold(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		// Transform failures leave the input usable as-is.
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// ContainsFolded reports whether needle occurs in haystack after both
// are folded.
func ContainsFolded(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// IsTerminalSuccess reports whether the text carries the terminal
// success marker.
func IsTerminalSuccess(text string) bool {
	folded := Fold(text)
	for _, marker := range terminalSuccessMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// IsAlreadyPaid reports whether the text carries an already-settled
// marker.
func IsAlreadyPaid(text string) bool {
	folded := Fold(text)
	for _, marker := range alreadyPaidMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}
