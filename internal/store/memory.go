package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"deal-matching-service/internal/models"
)

// MemoryStore is an in-memory Store used by tests and by the CLI's
// file-based mode. Lookup methods mirror the normalization the
// Postgres store performs in SQL.
type MemoryStore struct {
	mu       sync.RWMutex
	clients  map[int64]*models.Client
	deals    map[int64]*models.Deal
	policies map[int64]*models.Policy
	expenses map[int64]*models.Expense
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:  make(map[int64]*models.Client),
		deals:    make(map[int64]*models.Deal),
		policies: make(map[int64]*models.Policy),
		expenses: make(map[int64]*models.Expense),
	}
}

// AddClient stores a client record.
func (s *MemoryStore) AddClient(client *models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
}

// AddDeal stores a deal record.
func (s *MemoryStore) AddDeal(deal *models.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[deal.ID] = deal
}

// AddPolicy stores a policy record.
func (s *MemoryStore) AddPolicy(policy *models.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.ID] = policy
}

// AddExpense stores an expense record.
func (s *MemoryStore) AddExpense(expense *models.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[expense.ID] = expense
}

// LoadDeals implements Store. Returned deals are shallow copies with
// their client and non-deleted policies attached, so callers can hold
// them across concurrent store mutations.
func (s *MemoryStore) LoadDeals(ctx context.Context, ids []int64) ([]*models.Deal, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var selected []*models.Deal
	if ids == nil {
		for _, deal := range s.deals {
			if !deal.IsDeleted {
				selected = append(selected, deal)
			}
		}
	} else {
		for _, id := range ids {
			if deal, ok := s.deals[id]; ok && !deal.IsDeleted {
				selected = append(selected, deal)
			}
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })

	result := make([]*models.Deal, 0, len(selected))
	for _, deal := range selected {
		result = append(result, s.assembleDeal(deal))
	}
	return result, nil
}

func (s *MemoryStore) assembleDeal(deal *models.Deal) *models.Deal {
	copied := *deal
	if client, ok := s.clients[deal.ClientID]; ok {
		clientCopy := *client
		copied.Client = &clientCopy
	}

	var policies []*models.Policy
	for _, policy := range s.policies {
		if policy.IsDeleted || policy.DealID == nil || *policy.DealID != deal.ID {
			continue
		}
		policies = append(policies, s.assemblePolicy(policy))
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].ID < policies[j].ID })
	copied.Policies = policies
	return &copied
}

func (s *MemoryStore) assemblePolicy(policy *models.Policy) *models.Policy {
	copied := *policy
	if client, ok := s.clients[policy.ClientID]; ok {
		clientCopy := *client
		copied.Client = &clientCopy
	}
	var expenses []*models.Expense
	for _, expense := range s.expenses {
		if expense.PolicyID != policy.ID {
			continue
		}
		expenseCopy := *expense
		expenses = append(expenses, &expenseCopy)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].ID < expenses[j].ID })
	copied.Expenses = expenses
	return &copied
}

// LoadPolicy implements Store.
func (s *MemoryStore) LoadPolicy(ctx context.Context, id int64) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[id]
	if !ok || policy.IsDeleted {
		return nil, errors.Errorf("policy %d not found", id)
	}
	return s.assemblePolicy(policy), nil
}

// DealIDsByClient implements Store.
func (s *MemoryStore) DealIDsByClient(ctx context.Context, clientID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, deal := range s.deals {
		if !deal.IsDeleted && deal.ClientID == clientID {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// DealIDsByClientIDs implements Store.
func (s *MemoryStore) DealIDsByClientIDs(ctx context.Context, clientIDs []int64) ([]int64, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		wanted[id] = struct{}{}
	}

	var ids []int64
	for _, deal := range s.deals {
		if deal.IsDeleted {
			continue
		}
		if _, ok := wanted[deal.ClientID]; ok {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// DealIDsByPolicyVIN implements Store.
func (s *MemoryStore) DealIDsByPolicyVIN(ctx context.Context, vin string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, policy := range s.policies {
		if policy.IsDeleted || policy.DealID == nil || policy.VehicleVIN == "" {
			continue
		}
		if compactIdentifier(policy.VehicleVIN) != vin {
			continue
		}
		if deal, ok := s.deals[*policy.DealID]; ok && !deal.IsDeleted {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// DealIDsByPolicyNumber implements Store.
func (s *MemoryStore) DealIDsByPolicyNumber(ctx context.Context, number string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, policy := range s.policies {
		if policy.IsDeleted || policy.DealID == nil || policy.PolicyNumber == "" {
			continue
		}
		if compactIdentifier(policy.PolicyNumber) != number {
			continue
		}
		if deal, ok := s.deals[*policy.DealID]; ok && !deal.IsDeleted {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// DealIDsByExpenseContractor implements Store. Only policies that
// carry at least one non-deleted expense participate.
func (s *MemoryStore) DealIDsByExpenseContractor(ctx context.Context, contractor string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policiesWithExpense := make(map[int64]struct{})
	for _, expense := range s.expenses {
		if !expense.IsDeleted {
			policiesWithExpense[expense.PolicyID] = struct{}{}
		}
	}

	var ids []int64
	for _, policy := range s.policies {
		if policy.IsDeleted || policy.DealID == nil || policy.Contractor == "" {
			continue
		}
		if _, ok := policiesWithExpense[policy.ID]; !ok {
			continue
		}
		if loweredTrim(policy.Contractor) != contractor {
			continue
		}
		if deal, ok := s.deals[*policy.DealID]; ok && !deal.IsDeleted {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// DealIDsByClientEmail implements Store.
func (s *MemoryStore) DealIDsByClientEmail(ctx context.Context, email string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, deal := range s.deals {
		if deal.IsDeleted {
			continue
		}
		client, ok := s.clients[deal.ClientID]
		if !ok || client.IsDeleted || client.Email == "" {
			continue
		}
		if loweredTrim(client.Email) == email {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// DealIDsByVehicle implements Store.
func (s *MemoryStore) DealIDsByVehicle(ctx context.Context, brand, model string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, policy := range s.policies {
		if policy.IsDeleted || policy.DealID == nil {
			continue
		}
		if policy.VehicleBrand == "" || policy.VehicleModel == "" {
			continue
		}
		if loweredTrim(policy.VehicleBrand) != brand || loweredTrim(policy.VehicleModel) != model {
			continue
		}
		if deal, ok := s.deals[*policy.DealID]; ok && !deal.IsDeleted {
			ids = append(ids, deal.ID)
		}
	}
	return sortedIDs(ids), nil
}

// ClientsByPhoneDigits implements Store.
func (s *MemoryStore) ClientsByPhoneDigits(ctx context.Context, variants []string) ([]*models.Client, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(variants))
	for _, variant := range variants {
		wanted[variant] = struct{}{}
	}

	var clients []*models.Client
	for _, client := range s.clients {
		if client.IsDeleted || client.Phone == "" {
			continue
		}
		if _, ok := wanted[strippedPhone(client.Phone)]; ok {
			clientCopy := *client
			clients = append(clients, &clientCopy)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func sortedIDs(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// compactIdentifier mirrors the SQL identifier normalization: lowercase
// with separator punctuation removed.
func compactIdentifier(value string) string {
	lowered := strings.ToLower(value)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.', ',', '/', '\\':
			return -1
		}
		return r
	}, lowered)
}

// strippedPhone mirrors the SQL phone normalization: lowercase with
// common phone punctuation removed.
func strippedPhone(value string) string {
	lowered := strings.ToLower(value)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '+', '.':
			return -1
		}
		return r
	}, lowered)
}

func loweredTrim(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
