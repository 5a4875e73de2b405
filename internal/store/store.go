// Package store provides persistence access for the matching engine.
// Two implementations exist: a PostgreSQL store backed by pgx, and an
// in-memory store used by tests and by the file-based CLI mode.
package store

import (
	"context"

	"deal-matching-service/internal/models"
)

// Store is the read surface the matching engine depends on. All lookup
// methods that accept normalized values expect the caller to pass them
// already normalized; implementations apply the equivalent
// normalization on the stored side.
//
// Methods returning deal or client IDs never return deleted rows.
type Store interface {
	// LoadDeals fetches the deals with the given IDs together with
	// their client, policies and policy expenses. A nil ids slice means
	// "all non-deleted deals"; an empty non-nil slice returns an empty
	// result without touching the backend.
	LoadDeals(ctx context.Context, ids []int64) ([]*models.Deal, error)

	// LoadPolicy fetches a single policy with its client and expenses.
	LoadPolicy(ctx context.Context, id int64) (*models.Policy, error)

	// DealIDsByClient returns IDs of non-deleted deals belonging to the
	// given client.
	DealIDsByClient(ctx context.Context, clientID int64) ([]int64, error)

	// DealIDsByClientIDs returns IDs of non-deleted deals belonging to
	// any of the given clients.
	DealIDsByClientIDs(ctx context.Context, clientIDs []int64) ([]int64, error)

	// DealIDsByPolicyVIN returns IDs of deals that have a policy whose
	// normalized VIN equals the given value.
	DealIDsByPolicyVIN(ctx context.Context, vin string) ([]int64, error)

	// DealIDsByPolicyNumber returns IDs of deals that have a policy
	// whose normalized number equals the given value.
	DealIDsByPolicyNumber(ctx context.Context, number string) ([]int64, error)

	// DealIDsByExpenseContractor returns IDs of deals that have a
	// policy with an expense whose normalized contractor name equals
	// the given value.
	DealIDsByExpenseContractor(ctx context.Context, contractor string) ([]int64, error)

	// DealIDsByClientEmail returns IDs of deals whose client has the
	// given normalized email.
	DealIDsByClientEmail(ctx context.Context, email string) ([]int64, error)

	// DealIDsByVehicle returns IDs of deals with the given normalized
	// vehicle brand and model.
	DealIDsByVehicle(ctx context.Context, brand, model string) ([]int64, error)

	// ClientsByPhoneDigits returns non-deleted clients whose phone,
	// reduced to digits, equals any of the given variants. The coarse
	// digit comparison happens on the stored side; callers recheck the
	// returned phones with their own canonical form.
	ClientsByPhoneDigits(ctx context.Context, variants []string) ([]*models.Client, error)
}
