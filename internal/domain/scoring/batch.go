package scoring

import (
	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/domain/normalize"
)

// CohortEntry is the full audit trail for one symbol in a batch pass: the
// raw inputs, their cross-sectional normalization, and the resulting score.
type CohortEntry struct {
	Symbol     string
	Raw        *domain.RawSignalVector
	Normalized *domain.NormalizedSignalVector
	Score      *domain.DirectionalScore
}

// ScoreCohort applies the normalizer and scorer across an entire cohort in
// one pass. The output preserves input order and carries every intermediate
// value so a run can be reproduced and audited. The pass is deterministic:
// the same cohort and config always produce identical output.
func ScoreCohort(vectors []*domain.RawSignalVector, reg *domain.Registry, normCfg normalize.Config, scorer *Scorer) []CohortEntry {
	normalized := normalize.Cohort(vectors, reg, normCfg)

	entries := make([]CohortEntry, len(vectors))
	for i, nv := range normalized {
		entries[i] = CohortEntry{
			Symbol:     nv.Symbol,
			Raw:        vectors[i],
			Normalized: nv,
			Score:      scorer.Score(nv),
		}
	}
	return entries
}
