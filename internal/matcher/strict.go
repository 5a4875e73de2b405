package matcher

import (
	"fmt"
	"strings"

	"deal-matching-service/internal/journal"
)

// FindStrictMatches evaluates the definitive rule families against
// every deal in the index: VIN equality, policy-number equality or
// containment in the deal text, and drive-folder containment. A deal
// with at least one hit becomes a strict candidate with score 1.0.
//
// Rules run in a fixed order per deal and reasons accumulate in that
// order. Deals without hits are not returned.
func FindStrictMatches(policyProfile *PolicyMatchProfile, index *DealMatchIndex) []*CandidateDeal {
	var matches []*CandidateDeal

	policyVIN := policyProfile.NormalizedVehicleVIN
	numberSearch := NormalizePolicyNumber(policyProfile.PolicyNumber)
	driveLink := strings.TrimSpace(policyProfile.DriveFolderLink)

	for _, dealID := range index.IDs() {
		dealProfile, _ := index.Get(dealID)
		var reasons []string

		if policyVIN != "" && dealProfile.VINs.Has(policyVIN) {
			if matched := dealProfile.policyByVIN(policyVIN); matched != nil {
				reasons = append(reasons, fmt.Sprintf("VIN совпадает с полисом №%s", matched.PolicyNumber))
			} else {
				reasons = append(reasons, "VIN matches a policy of the deal")
			}
		}

		if numberSearch != "" {
			if existing := dealProfile.policyByNumber(numberSearch); existing != nil {
				reasons = append(reasons, fmt.Sprintf("Policy number matches policy №%s", existing.PolicyNumber))
			} else {
				description := NormalizeTextForMatch(dealProfile.Deal.Description)
				if description != "" && strings.Contains(description, numberSearch) {
					reasons = append(reasons, fmt.Sprintf("Policy number %s found in the deal description", policyProfile.PolicyNumber))
				}
				calculations := NormalizeTextForMatch(
					journal.FormatForDisplay(dealProfile.Deal.Calculations, true),
				)
				if calculations != "" && strings.Contains(calculations, numberSearch) {
					reasons = append(reasons, fmt.Sprintf("Policy number %s found in the deal calculations", policyProfile.PolicyNumber))
				}
			}
		}

		if driveLink != "" {
			folders := []string{
				dealProfile.Deal.DriveFolderPath,
				dealProfile.Deal.DriveFolderLink,
			}
			for _, folder := range folders {
				if folder != "" && IsSubpath(driveLink, folder) {
					reasons = append(reasons, "Policy drive link is inside the deal folder")
					break
				}
			}
		}

		if len(reasons) > 0 {
			matches = append(matches, &CandidateDeal{
				DealID:   dealID,
				Score:    1.0,
				Reasons:  reasons,
				IsStrict: true,
			})
		}
	}

	return matches
}

// policyByVIN returns the first policy profile with the given
// normalized VIN, or nil.
func (dp *DealMatchProfile) policyByVIN(vin string) *PolicyMatchProfile {
	for _, pp := range dp.PolicyProfiles {
		if pp.NormalizedVehicleVIN == vin {
			return pp
		}
	}
	return nil
}

// policyByNumber returns the first policy profile whose compacted
// number equals the given search value, or nil.
func (dp *DealMatchProfile) policyByNumber(numberSearch string) *PolicyMatchProfile {
	for _, pp := range dp.PolicyProfiles {
		if NormalizePolicyNumber(pp.PolicyNumber) == numberSearch {
			return pp
		}
	}
	return nil
}
