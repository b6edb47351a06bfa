package bookmaker

import (
	"strings"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// Filter is an inclusion predicate over a candidate outcome set. A set that
// fails any enabled filter is discarded before it is scored.
type Filter interface {
	Name() string
	Accept(outcomes []domain.Outcome) bool
}

// AllowList passes only when every outcome's bookmaker is allowed. Names are
// compared by their normalized form so alias variants of an allowed book
// pass as well.
type AllowList struct {
	allowed map[string]bool
}

// NewAllowList builds an allow-list from display or free-text names. An empty
// list allows everything.
func NewAllowList(names []string) *AllowList {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		allowed[Normalize(n)] = true
	}
	return &AllowList{allowed: allowed}
}

func (a *AllowList) Name() string { return "allow_list" }

// Allowed reports whether a single bookmaker name is on the list.
func (a *AllowList) Allowed(name string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	if a.allowed[Normalize(name)] {
		return true
	}
	// A cleaned name that is not itself canonical may still be listed
	// verbatim, e.g. a regional book configured by its exact title.
	return a.allowed[Clean(name)]
}

func (a *AllowList) Accept(outcomes []domain.Outcome) bool {
	for _, o := range outcomes {
		if !a.Allowed(o.Bookmaker) {
			return false
		}
	}
	return true
}

// TargetKeywords passes when at least one outcome's raw lower-cased
// bookmaker name contains one of the keywords.
type TargetKeywords struct {
	keywords []string
}

// NewTargetKeywords returns a keyword filter. An empty set passes everything.
func NewTargetKeywords(keywords []string) *TargetKeywords {
	return &TargetKeywords{keywords: lowerAll(keywords)}
}

func (t *TargetKeywords) Name() string { return "target_keywords" }

// Matches reports whether name contains any keyword.
func (t *TargetKeywords) Matches(name string) bool {
	return containsAny(strings.ToLower(name), t.keywords)
}

func (t *TargetKeywords) Accept(outcomes []domain.Outcome) bool {
	if len(t.keywords) == 0 {
		return true
	}
	for _, o := range outcomes {
		if t.Matches(o.Bookmaker) {
			return true
		}
	}
	return false
}

// ExchangePartner requires a two-outcome set to pair a betting exchange with
// a partner bookmaker, in either order. Sets of any other size pass through
// untouched.
type ExchangePartner struct {
	exchanges []string
	partners  []string
}

// NewExchangePartner returns the pairing filter.
func NewExchangePartner(exchangeKeywords, partners []string) *ExchangePartner {
	return &ExchangePartner{
		exchanges: lowerAll(exchangeKeywords),
		partners:  lowerAll(partners),
	}
}

func (e *ExchangePartner) Name() string { return "exchange_partner" }

// IsExchange reports whether name looks like a betting exchange.
func (e *ExchangePartner) IsExchange(name string) bool {
	return containsAny(Clean(name), e.exchanges)
}

// IsPartner reports whether name is one of the partner books.
func (e *ExchangePartner) IsPartner(name string) bool {
	return containsAny(Clean(name), e.partners)
}

func (e *ExchangePartner) Accept(outcomes []domain.Outcome) bool {
	if len(outcomes) != 2 {
		return true
	}
	a, b := outcomes[0].Bookmaker, outcomes[1].Bookmaker
	return (e.IsExchange(a) && e.IsPartner(b)) || (e.IsExchange(b) && e.IsPartner(a))
}

// PolicyConfig selects and parameterizes the filters of a Policy.
type PolicyConfig struct {
	Allowed                []string
	TargetKeywords         []string
	ExchangeKeywords       []string
	Partners               []string
	RequireExchangePartner bool
}

// Policy is a conjunctive chain of filters.
type Policy struct {
	filters []Filter
}

// NewPolicy builds the filter chain. Empty allow-list and keyword sets are
// left out of the chain entirely.
func NewPolicy(cfg PolicyConfig) *Policy {
	var filters []Filter
	if len(cfg.TargetKeywords) > 0 {
		filters = append(filters, NewTargetKeywords(cfg.TargetKeywords))
	}
	if len(cfg.Allowed) > 0 {
		filters = append(filters, NewAllowList(cfg.Allowed))
	}
	if cfg.RequireExchangePartner {
		filters = append(filters, NewExchangePartner(cfg.ExchangeKeywords, cfg.Partners))
	}
	return &Policy{filters: filters}
}

// NewPolicyOf builds a policy from explicit filters.
func NewPolicyOf(filters ...Filter) *Policy {
	return &Policy{filters: filters}
}

// Evaluate returns whether the outcomes pass every filter and, if not, the
// name of the first filter that rejected them.
func (p *Policy) Evaluate(outcomes []domain.Outcome) (bool, string) {
	for _, f := range p.filters {
		if !f.Accept(outcomes) {
			return false, f.Name()
		}
	}
	return true, ""
}

// Names lists the enabled filters in evaluation order.
func (p *Policy) Names() []string {
	out := make([]string, len(p.filters))
	for i, f := range p.filters {
		out[i] = f.Name()
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
