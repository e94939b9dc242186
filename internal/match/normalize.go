// Package match decides whether a target business is referenced by free
// text returned from a language-model provider, and extracts competitor
// candidates from that text.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are whole-word legal-entity markers stripped during
// normalization so "Dupont Toiture SARL" and "Dupont Toiture" compare
// equal.
var legalSuffixes = map[string]bool{
	"sarl":   true,
	"sas":    true,
	"eurl":   true,
	"srl":    true,
	"snc":    true,
	"sa":     true,
	"spa":    true,
	"ltd":    true,
	"llc":    true,
	"gmbh":   true,
	"cie":    true,
	"group":  true,
	"groupe": true,
}

// foldDiacritics decomposes to NFD and drops combining marks, mapping
// accented Latin letters to their base form.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a business name or answer text for comparison:
// lowercase, diacritics folded, legal suffixes removed, every run of
// non-alphanumeric characters collapsed to a single space. Returns "" for
// empty input. The output only ever contains [a-z0-9 ].
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	out := tokens[:0]
	for i := 0; i < len(tokens); i++ {
		// "et fils" is the only two-token suffix.
		if tokens[i] == "et" && i+1 < len(tokens) && tokens[i+1] == "fils" {
			i++
			continue
		}
		if legalSuffixes[tokens[i]] {
			continue
		}
		out = append(out, tokens[i])
	}
	return strings.Join(out, " ")
}

// DomainOf reduces a URL to a comparable host token: scheme and leading
// "www." stripped, path and query cut, then the last two dot-separated
// labels. Hosts without a dot yield "". This knowingly mishandles
// multi-level public suffixes (".co.uk" comes out as "co.uk"); scoring
// thresholds were tuned against this behavior, so keep it.
func DomainOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u := strings.ToLower(strings.TrimSpace(rawURL))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if !strings.Contains(u, ".") {
		return ""
	}
	labels := strings.Split(u, ".")
	return strings.Join(labels[len(labels)-2:], ".")
}

// domainToken is the registrable label of a website's domain, the part
// actually expected to show up in prose ("dupont-toiture" from
// "https://www.dupont-toiture.fr/devis").
func domainToken(website string) string {
	d := DomainOf(website)
	if d == "" {
		return ""
	}
	if i := strings.IndexByte(d, '.'); i >= 0 {
		d = d[:i]
	}
	return d
}
