package scorer

import (
	"math"
	"time"

	"github.com/givecare/resource-matcher/internal/config"
	"github.com/givecare/resource-matcher/internal/model"
)

// Request carries the caller-side inputs that influence every score in a
// query. Build it once per query with NewRequest.
type Request struct {
	Zones  []string
	Crisis bool
}

// NewRequest normalizes the query's zones and resolves crisis gating.
// Unknown or blank zones and bands are treated as no preference.
func NewRequest(q model.Query) Request {
	return Request{
		Zones:  model.NormalizeTokens(q.Zones),
		Crisis: q.HasBand(model.BandCrisis),
	}
}

// Scorer computes RBI scores. It is safe for concurrent use.
type Scorer struct {
	cfg config.ScoringConfig
	now func() time.Time
}

// New creates a Scorer with the given config.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// WithNow fixes the clock used for freshness, for testing.
func (s *Scorer) WithNow(t time.Time) *Scorer {
	s.now = func() time.Time { return t }
	return s
}

// Score rates a resource matched through area for req. The result is always
// in [0,100]; malformed catalog data degrades to documented defaults.
func (s *Scorer) Score(req Request, res model.Resource, prog model.Program, area model.ServiceArea) (int, model.ScoreBreakdown) {
	return s.ScoreAt(s.now(), req, res, prog, area)
}

// ScoreAt is Score with an explicit clock, so every candidate in one query
// ages against the same instant.
func (s *Scorer) ScoreAt(now time.Time, req Request, res model.Resource, prog model.Program, area model.ServiceArea) (int, model.ScoreBreakdown) {
	b := model.ScoreBreakdown{
		ZoneMatch:         scoreZoneMatch(req.Zones, prog.PressureZones),
		VerificationScore: scoreVerification(res.VerificationStatus),
		FreshnessScore:    scoreFreshness(res.LastVerifiedDate, now),
		JurisdictionFit:   scoreJurisdictionFit(res.JurisdictionLevel, area.Type),
		OutcomeSignal:     scoreOutcome(res.SuccessCount, res.IssueCount),
		Penalty: penaltyFor(res.BrokenLink, res.BounceCount,
			s.cfg.BrokenLinkPenalty, s.cfg.BouncePenaltyPer, s.cfg.BouncePenaltyCap),
	}

	w := s.cfg.Weights
	raw := w.ZoneMatch*b.ZoneMatch +
		w.Verification*b.VerificationScore +
		w.Freshness*b.FreshnessScore +
		w.Jurisdiction*b.JurisdictionFit +
		w.Outcome*b.OutcomeSignal -
		b.Penalty
	b.Raw = clamp(raw, 0, 1)

	score := toPercent(b.Raw)

	if req.Crisis && res.VerificationStatus == model.VerificationFull {
		b.CrisisBoosted = true
		score = ApplyCrisis(score, s.cfg.CrisisMultiplier)
	}

	return score, b
}

// ApplyCrisis multiplies a score by the crisis multiplier, rounds, and
// re-clamps to [0,100]. The multiplier may push the product past 100 before
// the clamp.
func ApplyCrisis(score int, multiplier float64) int {
	boosted := roundHalfUp(float64(score) * multiplier)
	return int(clamp(boosted, 0, 100))
}

// toPercent scales a [0,1] value to an integer percentage.
func toPercent(raw float64) int {
	return int(clamp(roundHalfUp(raw*100), 0, 100))
}

// roundHalfUp rounds after quantizing to 1e-6 so that values like
// 0.965*100 = 96.49999999999999 round to 97 as intended.
func roundHalfUp(v float64) float64 {
	return math.Round(math.Round(v*1e6) / 1e6)
}
