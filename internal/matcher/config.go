// Package matcher implements the deal-matching engine: given an
// insurance policy record, it finds existing deals that plausibly
// correspond to it.
//
// Matching works in two tiers:
//   - strict rules (VIN equality, policy-number equality or containment
//     in the deal text, drive-folder containment) mark a deal as a
//     definitive candidate with score 1.0;
//   - indirect rules (client phone/email, contractor-name similarity,
//     vehicle brand/model with date proximity, insurance attribute
//     triple, contractor expense trail) each contribute a fixed weight,
//     combined additively per deal.
//
// The pipeline builds normalized matching profiles from current store
// state on every call; nothing is cached between calls, so the engine
// is a pure function of the database plus the input policy and is safe
// for concurrent use.
//
// Example usage:
//
//	engine := matcher.NewEngine(store, matcher.DefaultMatchingConfig(), nil)
//	candidates, err := engine.FindCandidateDeals(ctx, policy, 10)
package matcher

import "fmt"

// Default rule weights and thresholds. The concrete values are part of
// the matching behavior contract and must not drift between releases.
const (
	PhoneMatchWeight        = 0.6
	EmailMatchWeight        = 0.6
	ContractorNameWeight    = 0.5
	BrandModelDateWeight    = 0.5
	InsuranceChannelWeight  = 0.5
	ExpenseContractorWeight = 0.3

	ContractorSimilarityThreshold = 0.8
	DateDiffToleranceDays         = 30

	DefaultCandidateLimit = 10
)

// MatchingConfig holds the tunable parameters of the matching engine.
// Zero-value fields are not meaningful; use DefaultMatchingConfig and
// adjust from there.
type MatchingConfig struct {
	// Indirect rule weights.
	PhoneWeight             float64 `json:"phone_weight"`
	EmailWeight             float64 `json:"email_weight"`
	ContractorWeight        float64 `json:"contractor_weight"`
	BrandModelWeight        float64 `json:"brand_model_weight"`
	InsuranceChannelWeight  float64 `json:"insurance_channel_weight"`
	ExpenseContractorWeight float64 `json:"expense_contractor_weight"`

	// SimilarityThreshold is the minimum contractor-name similarity
	// ratio that counts as a match.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// DateToleranceDays bounds the start/end date distance for the
	// brand/model rule.
	DateToleranceDays int `json:"date_tolerance_days"`

	// CandidateLimit caps the number of returned candidates.
	CandidateLimit int `json:"candidate_limit"`
}

// DefaultMatchingConfig returns the production matching configuration.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		PhoneWeight:             PhoneMatchWeight,
		EmailWeight:             EmailMatchWeight,
		ContractorWeight:        ContractorNameWeight,
		BrandModelWeight:        BrandModelDateWeight,
		InsuranceChannelWeight:  InsuranceChannelWeight,
		ExpenseContractorWeight: ExpenseContractorWeight,
		SimilarityThreshold:     ContractorSimilarityThreshold,
		DateToleranceDays:       DateDiffToleranceDays,
		CandidateLimit:          DefaultCandidateLimit,
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	weights := map[string]float64{
		"phone_weight":              mc.PhoneWeight,
		"email_weight":              mc.EmailWeight,
		"contractor_weight":         mc.ContractorWeight,
		"brand_model_weight":        mc.BrandModelWeight,
		"insurance_channel_weight":  mc.InsuranceChannelWeight,
		"expense_contractor_weight": mc.ExpenseContractorWeight,
	}
	for name, weight := range weights {
		if weight < 0.0 || weight > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0: %f", name, weight)
		}
	}

	if mc.SimilarityThreshold < 0.0 || mc.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity threshold must be between 0.0 and 1.0: %f", mc.SimilarityThreshold)
	}

	if mc.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", mc.DateToleranceDays)
	}

	if mc.CandidateLimit <= 0 {
		return fmt.Errorf("candidate limit must be positive: %d", mc.CandidateLimit)
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}
	clone := *mc
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Phone: %.2f, Email: %.2f, Contractor: %.2f (threshold %.2f), BrandModel: %.2f (±%dd), Limit: %d}",
		mc.PhoneWeight, mc.EmailWeight, mc.ContractorWeight, mc.SimilarityThreshold,
		mc.BrandModelWeight, mc.DateToleranceDays, mc.CandidateLimit)
}
