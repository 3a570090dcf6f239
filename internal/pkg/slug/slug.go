// Package slug builds URL slugs from Spanish headings and the regexes used to
// match a slug back against the raw text it came from.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Fold lower-cases s and strips diacritics ("Fútbol" -> "futbol").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Make turns a display name into a slug: folded, hyphen separated, no
// leading or trailing hyphen.
func Make(name string) string {
	s := nonAlnum.ReplaceAllString(Fold(name), "-")
	return strings.Trim(s, "-")
}

// separator matches any run of characters that Make collapsed into "-".
const separator = `[^a-z0-9áéíóúàèìòùäëïöüâêîôûñç]+`

var classes = map[rune]string{
	'a': "[aáàäâ]",
	'e': "[eéèëê]",
	'i': "[iíìïî]",
	'o': "[oóòöô]",
	'u': "[uúùüû]",
	'n': "[nñ]",
	'c': "[cç]",
}

// Pattern returns an anchored regex matching any text whose slug is slug,
// so "politica-nacional" matches "Política Nacional" and " política  nacional".
// The regex carries no flags; callers apply case-insensitivity the way their
// engine expects ($options for MongoDB, (?i) for Go, REGEXP_LIKE 'i' for MySQL).
// The syntax is the common subset of RE2, PCRE and ICU.
func Pattern(slug string) string {
	var b strings.Builder
	b.WriteString(`^\s*`)
	for _, part := range strings.Split(strings.Trim(Fold(slug), "-"), "-") {
		if part == "" {
			continue
		}
		if b.Len() > len(`^\s*`) {
			b.WriteString(separator)
		}
		for _, r := range part {
			if cls, ok := classes[r]; ok {
				b.WriteString(cls)
				continue
			}
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`\s*$`)
	return b.String()
}

// Matcher compiles Pattern(slug) for in-process matching.
func Matcher(slug string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + Pattern(slug))
}
