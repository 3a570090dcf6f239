package contact

import (
	"net/netip"
	"regexp"
	"strings"
	"unicode"

	"github.com/noticias/core/internal/pkg/slug"
)

// DefaultSpamKeywords apply when none are configured.
var DefaultSpamKeywords = []string{
	"viagra", "casino", "crypto", "bitcoin", "forex", "backlinks",
	"seo services", "prestamo rapido", "gana dinero", "click here",
}

var linkPattern = regexp.MustCompile(`(?i)\bhttps?://|\bwww\.`)

// Scorer assigns a spam score to a submission.
type Scorer struct {
	keywords []string
	prefixes []netip.Prefix
	exact    map[string]bool
}

// NewScorer builds a scorer. Blocked IPs are exact addresses or CIDR
// prefixes; entries that parse as neither are ignored.
func NewScorer(keywords, blockedIPs []string) *Scorer {
	if len(keywords) == 0 {
		keywords = DefaultSpamKeywords
	}
	s := &Scorer{exact: map[string]bool{}}
	for _, k := range keywords {
		if k = slug.Fold(strings.TrimSpace(k)); k != "" {
			s.keywords = append(s.keywords, k)
		}
	}
	for _, raw := range blockedIPs {
		raw = strings.TrimSpace(raw)
		if p, err := netip.ParsePrefix(raw); err == nil {
			s.prefixes = append(s.prefixes, p.Masked())
		} else if a, err := netip.ParseAddr(raw); err == nil {
			s.exact[a.String()] = true
		}
	}
	return s
}

// Score returns the total and the rules that fired.
func (s *Scorer) Score(subject, message, ip string) (int, []string) {
	var score int
	var reasons []string
	text := slug.Fold(subject + " " + message)

	for _, k := range s.keywords {
		if strings.Contains(text, k) {
			score += 3
			reasons = append(reasons, "keyword:"+k)
		}
	}

	switch n := len(linkPattern.FindAllStringIndex(message, -1)); {
	case n >= 6:
		score += 5
		reasons = append(reasons, "links")
	case n >= 3:
		score += 3
		reasons = append(reasons, "links")
	}

	if shouting(subject + " " + message) {
		score += 2
		reasons = append(reasons, "uppercase")
	}

	if s.blocked(ip) {
		score += 10
		reasons = append(reasons, "blocked-ip")
	}
	return score, reasons
}

// shouting reports whether most letters of a long enough text are upper
// case.
func shouting(s string) bool {
	var letters, upper int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 20 && float64(upper)/float64(letters) > 0.6
}

func (s *Scorer) blocked(ip string) bool {
	a, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	a = a.Unmap()
	if s.exact[a.String()] {
		return true
	}
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
