// Package bookmaker canonicalizes free-text bookmaker names and evaluates the
// inclusion filters applied to candidate outcome sets.
package bookmaker

import (
	"strings"
)

// Book is a known bookmaker. Names that match no alias resolve to Unknown.
type Book int

const (
	Unknown Book = iota
	Bet365
	Ladbrokes
	WilliamHill
	Pinnacle
	Unibet
	Coral
	BoyleSports
	PaddyPower
	SkyBet
	Betfair
	BetfairSportsbook
)

type bookInfo struct {
	key     string
	display string
	aliases []string // compact form: lower-case, no spaces or separators
}

// Betfair is the exchange; its fixed-odds sportsbook is a separate book
// with its own commission and allow-list entry.
var catalog = map[Book]bookInfo{
	Bet365:            {key: "bet365", display: "Bet365", aliases: []string{"bet365"}},
	Ladbrokes:         {key: "ladbrokes", display: "Ladbrokes", aliases: []string{"ladbroke", "ladbrokes", "ladbrook", "ladbrooks"}},
	WilliamHill:       {key: "william hill", display: "William Hill", aliases: []string{"williamhill", "willhill"}},
	Pinnacle:          {key: "pinnacle", display: "Pinnacle", aliases: []string{"pinnacle", "pinny"}},
	Unibet:            {key: "unibet", display: "Unibet", aliases: []string{"unibet"}},
	Coral:             {key: "coral", display: "Coral", aliases: []string{"coral"}},
	BoyleSports:       {key: "boylesports", display: "BoyleSports", aliases: []string{"boylesports", "boyle"}},
	PaddyPower:        {key: "paddy power", display: "Paddy Power", aliases: []string{"paddypower", "paddy"}},
	SkyBet:            {key: "sky bet", display: "Sky Bet", aliases: []string{"skybet"}},
	Betfair:           {key: "betfair", display: "Betfair", aliases: []string{"betfair", "betfairexchange", "betfairex"}},
	BetfairSportsbook: {key: "betfair sportsbook", display: "Betfair Sportsbook", aliases: []string{"betfairsportsbook", "betfairsb"}},
}

// aliasIndex maps every compact alias to its book.
var aliasIndex = func() map[string]Book {
	idx := make(map[string]Book)
	for b, info := range catalog {
		for _, a := range info.aliases {
			idx[a] = b
		}
	}
	return idx
}()

// substitutions fold known typos and spacing variants. Order matters:
// "ladbrooks" must be rewritten before "ladbrook".
var substitutions = strings.NewReplacer(
	"ladbrooks", "ladbrokes",
	"ladbrook", "ladbroke",
	"uni bet", "unibet",
	"will hill", "william hill",
	"boyle sports", "boylesports",
	"boyle-sports", "boylesports",
)

// regionSuffixes are trailing provider key suffixes such as "ladbrokes_uk".
var regionSuffixes = []string{"uk", "eu", "ie", "au", "us"}

// String returns the display name of the book.
func (b Book) String() string {
	if info, ok := catalog[b]; ok {
		return info.display
	}
	return "Unknown"
}

// Key returns the canonical comparison key of the book, or "" for Unknown.
func (b Book) Key() string {
	return catalog[b].key
}

// Clean lower-cases, trims and collapses whitespace, then applies the fixed
// substitution table.
func Clean(name string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	return substitutions.Replace(n)
}

// Canonicalize resolves a free-text name to a known Book.
func Canonicalize(name string) Book {
	c := compact(Clean(name))
	if c == "" {
		return Unknown
	}
	if b, ok := aliasIndex[c]; ok {
		return b
	}
	for _, sfx := range regionSuffixes {
		if base, found := strings.CutSuffix(c, sfx); found {
			if b, ok := aliasIndex[base]; ok {
				return b
			}
		}
	}
	return Unknown
}

// Normalize returns the canonical key for a known bookmaker and the cleaned
// name otherwise. It is the comparison key used by filters and commission
// lookups.
func Normalize(name string) string {
	if b := Canonicalize(name); b != Unknown {
		return b.Key()
	}
	return Clean(name)
}

// compact strips spaces and common separators.
func compact(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '-', '_', '.', '\'':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
