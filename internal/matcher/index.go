package matcher

import (
	"context"
	"sort"

	"deal-matching-service/internal/models"
	"deal-matching-service/internal/store"
)

// DealMatchIndex holds deal profiles keyed by deal ID while preserving
// a stable iteration order (ascending deal ID). Rule engines iterate
// the index, so deterministic ordering here keeps candidate ordering
// reproducible between runs.
type DealMatchIndex struct {
	order    []int64
	profiles map[int64]*DealMatchProfile
}

// NewDealMatchIndex creates an empty index.
func NewDealMatchIndex() *DealMatchIndex {
	return &DealMatchIndex{
		profiles: make(map[int64]*DealMatchProfile),
	}
}

// Add inserts a profile, replacing any existing profile for the same
// deal without disturbing its position.
func (idx *DealMatchIndex) Add(profile *DealMatchProfile) {
	if profile == nil || profile.Deal == nil {
		return
	}
	id := profile.Deal.ID
	if _, exists := idx.profiles[id]; !exists {
		idx.order = append(idx.order, id)
	}
	idx.profiles[id] = profile
}

// Get returns the profile for a deal ID.
func (idx *DealMatchIndex) Get(dealID int64) (*DealMatchProfile, bool) {
	profile, ok := idx.profiles[dealID]
	return profile, ok
}

// Len returns the number of indexed deals.
func (idx *DealMatchIndex) Len() int {
	return len(idx.profiles)
}

// IDs returns the deal IDs in iteration order. The returned slice is
// shared with the index and must not be modified.
func (idx *DealMatchIndex) IDs() []int64 {
	return idx.order
}

// BuildDealMatchIndex loads deals from the store and builds their
// matching profiles.
//
// A nil dealIDs slice indexes every non-deleted deal. An empty non-nil
// slice returns an empty index without querying the store. Profiles
// are inserted in ascending deal ID order.
func BuildDealMatchIndex(ctx context.Context, st store.Store, dealIDs []int64) (*DealMatchIndex, error) {
	idx := NewDealMatchIndex()
	if dealIDs != nil && len(dealIDs) == 0 {
		return idx, nil
	}

	deals, err := st.LoadDeals(ctx, dealIDs)
	if err != nil {
		return nil, err
	}

	sorted := make([]*models.Deal, 0, len(deals))
	for _, deal := range deals {
		if deal == nil || deal.IsDeleted {
			continue
		}
		sorted = append(sorted, deal)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, deal := range sorted {
		idx.Add(BuildDealProfile(deal))
	}
	return idx, nil
}
