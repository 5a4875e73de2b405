package matcher

import (
	"context"
	"sort"
	"strings"

	"deal-matching-service/internal/models"
	"deal-matching-service/internal/store"
	"deal-matching-service/pkg/logger"
)

// Engine runs the full matching pipeline: pre-filter, index build,
// strict and indirect rule passes, merge and ranking. It holds no
// state between calls and is safe for concurrent use.
type Engine struct {
	store  store.Store
	config *MatchingConfig
	logger logger.Logger
}

// NewEngine creates a matching engine. A nil config falls back to
// DefaultMatchingConfig; a nil log falls back to the global logger.
func NewEngine(st store.Store, config *MatchingConfig, log logger.Logger) *Engine {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Engine{
		store:  st,
		config: config,
		logger: log.WithComponent("matcher"),
	}
}

// Config returns the engine's matching configuration.
func (e *Engine) Config() *MatchingConfig {
	return e.config
}

// FindCandidateDealIDs narrows the search universe for a policy with
// cheap equality lookups before the full profile comparison runs.
//
// It returns nil when no lookup produced any deal, which the caller
// treats as "no usable pre-filter signal, scan all deals". A non-nil
// result is sorted ascending.
func (e *Engine) FindCandidateDealIDs(ctx context.Context, policy *models.Policy) ([]int64, error) {
	ids := make(map[int64]struct{})
	collect := func(dealIDs []int64, err error) error {
		if err != nil {
			return err
		}
		for _, id := range dealIDs {
			ids[id] = struct{}{}
		}
		return nil
	}

	if policy.ClientID != 0 {
		if err := collect(e.store.DealIDsByClient(ctx, policy.ClientID)); err != nil {
			return nil, err
		}
	}

	if vin := NormalizeVIN(policy.VehicleVIN); vin != "" {
		if err := collect(e.store.DealIDsByPolicyVIN(ctx, vin)); err != nil {
			return nil, err
		}
	}

	if number := NormalizePolicyNumber(policy.PolicyNumber); number != "" {
		if err := collect(e.store.DealIDsByPolicyNumber(ctx, number)); err != nil {
			return nil, err
		}
	}

	if contractor := NormalizeString(policy.Contractor); contractor != "" {
		if err := collect(e.store.DealIDsByExpenseContractor(ctx, contractor)); err != nil {
			return nil, err
		}
	}

	if policy.Client != nil {
		if err := e.collectPhoneCandidates(ctx, policy.Client.Phone, ids); err != nil {
			return nil, err
		}
		if email := NormalizeString(policy.Client.Email); email != "" {
			if err := collect(e.store.DealIDsByClientEmail(ctx, email)); err != nil {
				return nil, err
			}
		}
	}

	brand := NormalizeString(policy.VehicleBrand)
	model := NormalizeString(policy.VehicleModel)
	if brand != "" && model != "" {
		if err := collect(e.store.DealIDsByVehicle(ctx, brand, model)); err != nil {
			return nil, err
		}
	}

	if len(ids) == 0 {
		return nil, nil
	}
	result := make([]int64, 0, len(ids))
	for id := range ids {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

// collectPhoneCandidates adds deals of clients sharing the policy
// client's phone. Phone comparison here canonicalizes the Russian
// national prefix (leading "8" and "+7" are equivalent); that
// canonicalization is confined to this pre-filter and never applied
// by the profile phone sets.
func (e *Engine) collectPhoneCandidates(ctx context.Context, phone string, ids map[int64]struct{}) error {
	canonical := canonicalRUPhone(phone)
	if canonical == "" {
		return nil
	}

	clients, err := e.store.ClientsByPhoneDigits(ctx, phoneVariants(canonical))
	if err != nil {
		return err
	}

	var clientIDs []int64
	for _, client := range clients {
		if canonicalRUPhone(client.Phone) == canonical {
			clientIDs = append(clientIDs, client.ID)
		}
	}
	if len(clientIDs) == 0 {
		return nil
	}

	dealIDs, err := e.store.DealIDsByClientIDs(ctx, clientIDs)
	if err != nil {
		return err
	}
	for _, id := range dealIDs {
		ids[id] = struct{}{}
	}
	return nil
}

// canonicalRUPhone reduces a phone to digits and folds the Russian
// national prefix: a 10-digit local number gains a leading "7", an
// 11-digit number starting with "8" swaps it for "7".
func canonicalRUPhone(value string) string {
	digits := NormalizePhone(value)
	switch {
	case len(digits) == 10:
		return "7" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "8"):
		return "7" + digits[1:]
	}
	return digits
}

// phoneVariants lists the digit forms a stored phone may take for the
// given canonical number, for the coarse store-side lookup.
func phoneVariants(canonical string) []string {
	variants := []string{canonical}
	if len(canonical) == 11 {
		local := canonical[1:]
		variants = append(variants, local, "8"+local)
	}
	return variants
}

// FindCandidateDeals runs the full pipeline for a policy and returns
// at most limit ranked candidates. A non-positive limit returns an
// empty result without touching the store.
func (e *Engine) FindCandidateDeals(ctx context.Context, policy *models.Policy, limit int) ([]*CandidateDeal, error) {
	if limit <= 0 {
		return nil, nil
	}

	policyProfile := BuildPolicyProfile(policy)

	candidateIDs, err := e.FindCandidateDealIDs(ctx, policy)
	if err != nil {
		return nil, err
	}

	index, err := BuildDealMatchIndex(ctx, e.store, candidateIDs)
	if err != nil {
		return nil, err
	}

	strict := FindStrictMatches(policyProfile, index)
	indirect := CollectIndirectMatches(policyProfile, index, e.config)

	merged := mergeCandidates(index, strict, indirect)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	for _, candidate := range merged {
		topReasons := candidate.Reasons
		if len(topReasons) > 3 {
			topReasons = topReasons[:3]
		}
		e.logger.WithFields(logger.Fields{
			"policy_id": policy.ID,
			"deal_id":   candidate.DealID,
			"score":     candidate.Score,
			"strict":    candidate.IsStrict,
			"reasons":   strings.Join(topReasons, "; "),
		}).Info("Deal candidate found")
	}

	return merged, nil
}

// mergeCandidates combines the strict and indirect result lists by
// deal ID. The merged score is the higher of the strict score (1.0
// when present) and the summed indirect score; reasons concatenate
// strict-first without deduplication. Candidates are ordered by score
// descending, ties keeping first-encounter order across the two
// passes.
func mergeCandidates(index *DealMatchIndex, strict, indirect []*CandidateDeal) []*CandidateDeal {
	type mergedCandidate struct {
		candidate     *CandidateDeal
		strictScore   float64
		indirectScore float64
	}

	combined := make(map[int64]*mergedCandidate)
	var order []*mergedCandidate

	for _, source := range append(append([]*CandidateDeal{}, strict...), indirect...) {
		profile, ok := index.Get(source.DealID)
		if !ok {
			continue
		}
		entry := combined[source.DealID]
		if entry == nil {
			entry = &mergedCandidate{
				candidate: &CandidateDeal{
					DealID: source.DealID,
					Deal:   profile.Deal,
				},
			}
			combined[source.DealID] = entry
			order = append(order, entry)
		}
		if source.IsStrict {
			entry.candidate.IsStrict = true
			entry.strictScore = 1.0
		} else {
			entry.indirectScore += source.Score
		}
		entry.candidate.Reasons = append(entry.candidate.Reasons, source.Reasons...)
	}

	result := make([]*CandidateDeal, 0, len(order))
	for _, entry := range order {
		entry.candidate.Score = entry.strictScore
		if entry.indirectScore > entry.candidate.Score {
			entry.candidate.Score = entry.indirectScore
		}
		result = append(result, entry.candidate)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}
