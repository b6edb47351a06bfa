// Package dedup suppresses repeat notifications for an unchanged set of
// opportunities across scans.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

type outcomeKey struct {
	Label     string  `json:"label"`
	Price     float64 `json:"price"`
	Bookmaker string  `json:"bookmaker"`
}

type opportunityKey struct {
	Competition string       `json:"competition"`
	Market      string       `json:"market"`
	Match       string       `json:"match"`
	Kickoff     string       `json:"kickoff"`
	ROIPct      float64      `json:"roi_pct"`
	Outcomes    []outcomeKey `json:"outcomes"`
}

// Fingerprint returns a SHA-256 hex digest over the sorted key fields of
// opps. The result does not depend on the order of opps. ROI is rounded to
// three decimals so float noise between scans does not change the digest.
func Fingerprint(opps []domain.Opportunity) string {
	keys := make([]opportunityKey, len(opps))
	for i, o := range opps {
		k := opportunityKey{
			Competition: o.Competition,
			Market:      string(o.Market),
			Match:       o.Match(),
			Kickoff:     o.Kickoff.UTC().Format(time.RFC3339),
			ROIPct:      round3(o.ROIPct),
			Outcomes:    make([]outcomeKey, len(o.Outcomes)),
		}
		for j, oc := range o.Outcomes {
			k.Outcomes[j] = outcomeKey{Label: oc.Label(), Price: oc.Price, Bookmaker: oc.Bookmaker}
		}
		keys[i] = k
	}

	// Order by the canonical encoding of each key so ties on the leading
	// fields still sort deterministically.
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		// Marshalling plain structs of strings and finite floats cannot fail.
		encoded[i], _ = json.Marshal(k)
	}
	sort.Slice(encoded, func(i, j int) bool { return string(encoded[i]) < string(encoded[j]) })

	h := sha256.New()
	h.Write([]byte{'['})
	for i, e := range encoded {
		if i > 0 {
			h.Write([]byte{','})
		}
		h.Write(e)
	}
	h.Write([]byte{']'})
	return hex.EncodeToString(h.Sum(nil))
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}
