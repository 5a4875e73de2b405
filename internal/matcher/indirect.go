package matcher

import (
	"fmt"
	"sort"
	"time"
)

// CollectIndirectMatches evaluates the weighted heuristic rules
// against every deal in the index. Each fired rule adds its weight to
// the deal's score and appends a reason; weights are additive per
// deal. The result is sorted by score descending, preserving index
// order among equal scores.
func CollectIndirectMatches(policyProfile *PolicyMatchProfile, index *DealMatchIndex, cfg *MatchingConfig) []*CandidateDeal {
	if cfg == nil {
		cfg = DefaultMatchingConfig()
	}

	var matches []*CandidateDeal

	for _, dealID := range index.IDs() {
		dealProfile, _ := index.Get(dealID)
		score := 0.0
		var reasons []string

		if phones := policyProfile.ClientPhones.Intersect(dealProfile.ClientPhones); len(phones) > 0 {
			score += cfg.PhoneWeight
			reasons = append(reasons, fmt.Sprintf("Client phone matches: %s", phones[0]))
		}

		if emails := policyProfile.ClientEmails.Intersect(dealProfile.ClientEmails); len(emails) > 0 {
			score += cfg.EmailWeight
			reasons = append(reasons, fmt.Sprintf("Client email matches: %s", emails[0]))
		}

		contractor := policyProfile.NormalizedContractor
		if contractor != "" {
			contractorMatched := false
			if dealProfile.Client != nil {
				clientName := NormalizeString(dealProfile.Client.Name)
				if clientName != "" {
					similarity := similarityRatio(contractor, clientName)
					if similarity >= cfg.SimilarityThreshold {
						score += cfg.ContractorWeight
						reasons = append(reasons, fmt.Sprintf(
							"Policy contractor resembles deal client name (match %s)",
							formatSimilarity(similarity)))
						contractorMatched = true
					}
				}
			}
			if !contractorMatched {
				best := 0.0
				for _, dealContractor := range dealProfile.Contractors.Values() {
					similarity := similarityRatio(contractor, dealContractor)
					if similarity >= cfg.SimilarityThreshold && similarity > best {
						best = similarity
					}
				}
				if best >= cfg.SimilarityThreshold {
					score += cfg.ContractorWeight
					reasons = append(reasons, fmt.Sprintf(
						"Policy contractor resembles deal contractor (match %s)",
						formatSimilarity(best)))
				}
			}
		}

		vinIntersects := policyProfile.NormalizedVehicleVIN != "" &&
			dealProfile.VINs.Has(policyProfile.NormalizedVehicleVIN)
		if pairs := policyProfile.BrandModelPairs.Intersect(dealProfile.BrandModelPairs); len(pairs) > 0 && !vinIntersects {
			if datesWithinTolerance(policyProfile, dealProfile, cfg.DateToleranceDays) {
				score += cfg.BrandModelWeight
				pair := pairs[0]
				brand := policyProfile.Policy.VehicleBrand
				if brand == "" {
					brand = pair.Brand
				}
				model := policyProfile.Policy.VehicleModel
				if model == "" {
					model = pair.Model
				}
				reasons = append(reasons, fmt.Sprintf(
					"Brand and model match without a VIN match (%s / %s)", brand, model))
			}
		}

		if insuranceAttributesMatch(policyProfile, dealProfile) {
			score += cfg.InsuranceChannelWeight
			reasons = append(reasons, fmt.Sprintf(
				"Insurance company, type and sales channel match (%s / %s / %s)",
				policyProfile.Policy.InsuranceCompany,
				policyProfile.Policy.InsuranceType,
				policyProfile.Policy.SalesChannel))
		}

		if contractor != "" && dealProfile.ExpenseContractors.Has(contractor) {
			score += cfg.ExpenseContractorWeight
			name := policyProfile.Contractor
			if name == "" {
				name = contractor
			}
			reasons = append(reasons, fmt.Sprintf("Deal has expenses for contractor %s", name))
		}

		if score > 0 {
			matches = append(matches, &CandidateDeal{
				DealID:  dealID,
				Score:   score,
				Reasons: reasons,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// datesWithinTolerance reports whether either the start dates or the
// end dates of the policy and the deal's policy range are within the
// tolerance window.
func datesWithinTolerance(pp *PolicyMatchProfile, dp *DealMatchProfile, toleranceDays int) bool {
	if pp.StartDate != nil && dp.MinStart != nil {
		if absDays(pp.StartDate.Sub(*dp.MinStart)) <= toleranceDays {
			return true
		}
	}
	if pp.EndDate != nil && dp.MaxEnd != nil {
		if absDays(pp.EndDate.Sub(*dp.MaxEnd)) <= toleranceDays {
			return true
		}
	}
	return false
}

// insuranceAttributesMatch requires the policy to carry all three
// insurance attributes and each to intersect the deal's set.
func insuranceAttributesMatch(pp *PolicyMatchProfile, dp *DealMatchProfile) bool {
	if len(pp.InsuranceCompanies) == 0 || len(pp.InsuranceTypes) == 0 || len(pp.SalesChannels) == 0 {
		return false
	}
	return len(pp.InsuranceCompanies.Intersect(dp.InsuranceCompanies)) > 0 &&
		len(pp.InsuranceTypes.Intersect(dp.InsuranceTypes)) > 0 &&
		len(pp.SalesChannels.Intersect(dp.SalesChannels)) > 0
}

func absDays(d time.Duration) int {
	days := int(d.Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
