// Package extract turns pasted text and uploaded files into an ordered,
// de-duplicated list of tracking identifiers.
package extract

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

// Prefix is the fixed carrier prefix every identifier starts with.
const Prefix = "1Z"

var (
	identifierRe = regexp.MustCompile(Prefix + `[0-9A-Z]{16}`)
	exactRe      = regexp.MustCompile(`^` + Prefix + `[0-9A-Z]{16}$`)
	splitRe      = regexp.MustCompile(`\r?\n|,`)
)

// ErrNoIdentifiers is returned when the input contains no valid identifier.
var ErrNoIdentifiers = eris.New("extract: no tracking numbers found")

// Text extracts identifiers from free text split on commas and newlines.
// Each trimmed, non-empty token is scanned for every embedded identifier.
func Text(input string) ([]string, error) {
	set := newOrderedSet()
	for _, tok := range Tokens(input) {
		set.addAll(Find(tok))
	}
	return set.result()
}

// Tokens splits raw input on commas or newlines, trims each token and drops
// empty ones.
func Tokens(input string) []string {
	parts := splitRe.Split(input, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Find returns every identifier embedded in s, in order of appearance.
func Find(s string) []string {
	return identifierRe.FindAllString(fold(s), -1)
}

// Valid reports whether s, after trimming, is exactly one identifier.
func Valid(s string) bool {
	return exactRe.MatchString(fold(strings.TrimSpace(s)))
}

// fold maps full-width ASCII variants to their narrow forms so identifiers
// pasted from East-Asian spreadsheets still match.
func fold(s string) string {
	for _, r := range s {
		if r >= 0x80 {
			return width.Narrow.String(s)
		}
	}
	return s
}

// orderedSet keeps first-seen order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) addAll(vs []string) {
	for _, v := range vs {
		s.add(v)
	}
}

func (s *orderedSet) result() ([]string, error) {
	if len(s.items) == 0 {
		return nil, ErrNoIdentifiers
	}
	return s.items, nil
}
