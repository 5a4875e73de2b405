package matcher

import (
	"sort"
	"strings"
	"time"

	"deal-matching-service/internal/models"
)

// StringSet is a set of normalized string values.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given values, skipping empties.
func NewStringSet(values ...string) StringSet {
	set := make(StringSet)
	for _, value := range values {
		set.Add(value)
	}
	return set
}

// Add inserts a value; empty strings are ignored.
func (s StringSet) Add(value string) {
	if value == "" {
		return
	}
	s[value] = struct{}{}
}

// Has reports whether the value is in the set.
func (s StringSet) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Union adds every value of other to s.
func (s StringSet) Union(other StringSet) {
	for value := range other {
		s[value] = struct{}{}
	}
}

// Intersect returns the values common to both sets, sorted. Sorting
// makes the "representative" value picked for reason strings stable
// across runs.
func (s StringSet) Intersect(other StringSet) []string {
	var common []string
	for value := range s {
		if other.Has(value) {
			common = append(common, value)
		}
	}
	sort.Strings(common)
	return common
}

// Values returns the set contents, sorted.
func (s StringSet) Values() []string {
	values := make([]string, 0, len(s))
	for value := range s {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

// BrandModel is a normalized vehicle brand/model pair.
type BrandModel struct {
	Brand string
	Model string
}

// BrandModelSet is a set of brand/model pairs.
type BrandModelSet map[BrandModel]struct{}

// Add inserts a pair; pairs with an empty side are ignored.
func (s BrandModelSet) Add(pair BrandModel) {
	if pair.Brand == "" || pair.Model == "" {
		return
	}
	s[pair] = struct{}{}
}

// Union adds every pair of other to s.
func (s BrandModelSet) Union(other BrandModelSet) {
	for pair := range other {
		s[pair] = struct{}{}
	}
}

// Intersect returns the pairs common to both sets, sorted by brand
// then model.
func (s BrandModelSet) Intersect(other BrandModelSet) []BrandModel {
	var common []BrandModel
	for pair := range s {
		if _, ok := other[pair]; ok {
			common = append(common, pair)
		}
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].Brand != common[j].Brand {
			return common[i].Brand < common[j].Brand
		}
		return common[i].Model < common[j].Model
	})
	return common
}

// PolicyMatchProfile is a normalized snapshot of a single policy used
// purely for comparison during matching.
type PolicyMatchProfile struct {
	Policy *models.Policy

	PolicyNumber           string
	NormalizedPolicyNumber string
	VehicleVIN             string
	NormalizedVehicleVIN   string
	Contractor             string
	NormalizedContractor   string
	StartDate              *time.Time
	EndDate                *time.Time
	DriveFolderLink        string

	ClientPhones       StringSet
	ClientEmails       StringSet
	Contractors        StringSet
	BrandModelPairs    BrandModelSet
	InsuranceCompanies StringSet
	InsuranceTypes     StringSet
	SalesChannels      StringSet

	MinStart *time.Time
	MaxEnd   *time.Time
}

// DealMatchProfile aggregates the matching features of a deal, its
// client and all of its non-deleted policies.
type DealMatchProfile struct {
	Deal   *models.Deal
	Client *models.Client

	PolicyProfiles []*PolicyMatchProfile

	VINs          StringSet
	PolicyNumbers StringSet
	Contractors   StringSet
	FolderPaths   StringSet
	ClientPhones  StringSet
	ClientEmails  StringSet

	BrandModelPairs    BrandModelSet
	InsuranceCompanies StringSet
	InsuranceTypes     StringSet
	SalesChannels      StringSet

	// ExpenseContractors holds normalized contractor names of policies
	// that have at least one non-deleted expense. Used by the weakest
	// indirect rule: "this deal already paid this contractor".
	ExpenseContractors StringSet

	MinStart *time.Time
	MaxEnd   *time.Time
}

// CandidateDeal is a scored match result naming a deal as a plausible
// owner of a policy.
type CandidateDeal struct {
	DealID   int64        `json:"deal_id"`
	Deal     *models.Deal `json:"-"`
	Score    float64      `json:"score"`
	Reasons  []string     `json:"reasons"`
	IsStrict bool         `json:"is_strict"`
}

// BuildPolicyProfile normalizes a policy's matching features.
//
// Client phone and email become singleton sets when present; every
// other set carries at most one value for a single policy and grows
// only when profiles are aggregated into a deal profile.
func BuildPolicyProfile(policy *models.Policy) *PolicyMatchProfile {
	profile := &PolicyMatchProfile{
		Policy:                 policy,
		PolicyNumber:           policy.PolicyNumber,
		NormalizedPolicyNumber: NormalizeString(policy.PolicyNumber),
		VehicleVIN:             policy.VehicleVIN,
		NormalizedVehicleVIN:   NormalizeVIN(policy.VehicleVIN),
		Contractor:             policy.Contractor,
		NormalizedContractor:   NormalizeString(policy.Contractor),
		StartDate:              policy.StartDate,
		EndDate:                policy.EndDate,
		DriveFolderLink:        strings.TrimSpace(policy.DriveFolderLink),
		ClientPhones:           NewStringSet(),
		ClientEmails:           NewStringSet(),
		Contractors:            NewStringSet(),
		BrandModelPairs:        make(BrandModelSet),
		InsuranceCompanies:     NewStringSet(),
		InsuranceTypes:         NewStringSet(),
		SalesChannels:          NewStringSet(),
		MinStart:               policy.StartDate,
		MaxEnd:                 policy.EndDate,
	}

	if policy.ClientID != 0 && policy.Client != nil {
		profile.ClientPhones.Add(NormalizePhone(policy.Client.Phone))
		profile.ClientEmails.Add(NormalizeString(policy.Client.Email))
	}

	profile.Contractors.Add(profile.NormalizedContractor)
	profile.BrandModelPairs.Add(BrandModel{
		Brand: NormalizeString(policy.VehicleBrand),
		Model: NormalizeString(policy.VehicleModel),
	})
	profile.InsuranceCompanies.Add(NormalizeString(policy.InsuranceCompany))
	profile.InsuranceTypes.Add(NormalizeString(policy.InsuranceType))
	profile.SalesChannels.Add(NormalizeString(policy.SalesChannel))

	return profile
}

// BuildDealProfile aggregates the deal's non-deleted policies into a
// single matching profile.
func BuildDealProfile(deal *models.Deal) *DealMatchProfile {
	profile := &DealMatchProfile{
		Deal:               deal,
		Client:             deal.Client,
		VINs:               NewStringSet(),
		PolicyNumbers:      NewStringSet(),
		Contractors:        NewStringSet(),
		FolderPaths:        NewStringSet(),
		ClientPhones:       NewStringSet(),
		ClientEmails:       NewStringSet(),
		BrandModelPairs:    make(BrandModelSet),
		InsuranceCompanies: NewStringSet(),
		InsuranceTypes:     NewStringSet(),
		SalesChannels:      NewStringSet(),
		ExpenseContractors: NewStringSet(),
	}

	var policies []*models.Policy
	for _, policy := range deal.Policies {
		if policy == nil || policy.IsDeleted {
			continue
		}
		policies = append(policies, policy)
	}

	for _, policy := range policies {
		pp := BuildPolicyProfile(policy)
		profile.PolicyProfiles = append(profile.PolicyProfiles, pp)

		profile.VINs.Add(pp.NormalizedVehicleVIN)
		profile.PolicyNumbers.Add(pp.NormalizedPolicyNumber)
		profile.Contractors.Union(pp.Contractors)
		profile.BrandModelPairs.Union(pp.BrandModelPairs)
		profile.InsuranceCompanies.Union(pp.InsuranceCompanies)
		profile.InsuranceTypes.Union(pp.InsuranceTypes)
		profile.SalesChannels.Union(pp.SalesChannels)
		profile.ClientPhones.Union(pp.ClientPhones)
		profile.ClientEmails.Union(pp.ClientEmails)

		if pp.StartDate != nil && (profile.MinStart == nil || pp.StartDate.Before(*profile.MinStart)) {
			profile.MinStart = pp.StartDate
		}
		if pp.EndDate != nil && (profile.MaxEnd == nil || pp.EndDate.After(*profile.MaxEnd)) {
			profile.MaxEnd = pp.EndDate
		}

		if pp.NormalizedContractor != "" && policy.HasActiveExpense() {
			profile.ExpenseContractors.Add(pp.NormalizedContractor)
		}
	}

	profile.collectFolderPaths()

	if deal.Client != nil {
		profile.ClientPhones.Add(NormalizePhone(deal.Client.Phone))
		profile.ClientEmails.Add(NormalizeString(deal.Client.Email))
	}

	return profile
}

func (dp *DealMatchProfile) collectFolderPaths() {
	candidates := []string{
		dp.Deal.DriveFolderPath,
		dp.Deal.DriveFolderLink,
	}
	if dp.Client != nil {
		candidates = append(candidates, dp.Client.DriveFolderPath, dp.Client.DriveFolderLink)
	}
	for _, pp := range dp.PolicyProfiles {
		candidates = append(candidates, pp.DriveFolderLink)
	}
	for _, value := range candidates {
		dp.FolderPaths.Add(strings.TrimSpace(value))
	}
}
