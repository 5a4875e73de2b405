package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"deal-matching-service/internal/models"
)

// Identifier columns are compared after lowercasing and stripping
// separator punctuation, matching the Go-side normalizers.
const (
	identifierStrip = ` -_.,/\`
	phoneStrip      = ` -()+.`
)

// PostgresStore is the production Store backed by a pgx connection
// pool. All lookups run read-only queries; writes belong to the rest
// of the application.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies the
// connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse database URL")
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create connection pool")
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// HealthCheck verifies database connectivity.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const dealColumns = `
	id, client_id, status, COALESCE(description, ''), COALESCE(calculations, ''),
	is_closed, COALESCE(closed_reason, ''), COALESCE(drive_folder_path, ''),
	COALESCE(drive_folder_link, ''), start_date, reminder_date, is_deleted`

const policyColumns = `
	id, client_id, deal_id, policy_number, COALESCE(insurance_type, ''),
	COALESCE(insurance_company, ''), COALESCE(contractor, ''),
	COALESCE(sales_channel, ''), start_date, end_date,
	COALESCE(vehicle_brand, ''), COALESCE(vehicle_model, ''),
	COALESCE(vehicle_vin, ''), COALESCE(note, ''),
	COALESCE(drive_folder_path, ''), COALESCE(drive_folder_link, ''),
	COALESCE(renewed_to, ''), is_deleted`

const clientColumns = `
	id, name, COALESCE(phone, ''), COALESCE(email, ''), is_company,
	COALESCE(note, ''), COALESCE(drive_folder_path, ''),
	COALESCE(drive_folder_link, ''), is_deleted`

const expenseColumns = `
	id, payment_id, policy_id, amount, expense_type, expense_date,
	COALESCE(note, ''), is_deleted`

// LoadDeals implements Store. Deals, clients, policies and expenses
// are fetched with one query each, then assembled in memory.
func (s *PostgresStore) LoadDeals(ctx context.Context, ids []int64) ([]*models.Deal, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + dealColumns + ` FROM deals WHERE is_deleted = false`
	args := []interface{}{}
	if ids != nil {
		query += ` AND id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query deals")
	}
	deals, err := scanDeals(rows)
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return deals, nil
	}

	dealIDs := make([]int64, 0, len(deals))
	clientIDSet := make(map[int64]struct{})
	dealsByID := make(map[int64]*models.Deal, len(deals))
	for _, deal := range deals {
		dealIDs = append(dealIDs, deal.ID)
		clientIDSet[deal.ClientID] = struct{}{}
		dealsByID[deal.ID] = deal
	}

	policies, err := s.policiesByDealIDs(ctx, dealIDs)
	if err != nil {
		return nil, err
	}
	for _, policy := range policies {
		clientIDSet[policy.ClientID] = struct{}{}
	}

	clients, err := s.clientsByIDs(ctx, keys(clientIDSet))
	if err != nil {
		return nil, err
	}

	if err := s.attachExpenses(ctx, policies); err != nil {
		return nil, err
	}

	for _, policy := range policies {
		policy.Client = clients[policy.ClientID]
		if policy.DealID != nil {
			if deal, ok := dealsByID[*policy.DealID]; ok {
				deal.Policies = append(deal.Policies, policy)
			}
		}
	}
	for _, deal := range deals {
		deal.Client = clients[deal.ClientID]
	}

	return deals, nil
}

// LoadPolicy implements Store.
func (s *PostgresStore) LoadPolicy(ctx context.Context, id int64) (*models.Policy, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = $1 AND is_deleted = false`, id)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Errorf("policy %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to query policy")
	}

	clients, err := s.clientsByIDs(ctx, []int64{policy.ClientID})
	if err != nil {
		return nil, err
	}
	policy.Client = clients[policy.ClientID]

	if err := s.attachExpenses(ctx, []*models.Policy{policy}); err != nil {
		return nil, err
	}
	return policy, nil
}

// DealIDsByClient implements Store.
func (s *PostgresStore) DealIDsByClient(ctx context.Context, clientID int64) ([]int64, error) {
	return s.queryIDs(ctx,
		`SELECT id FROM deals WHERE is_deleted = false AND client_id = $1 ORDER BY id`,
		clientID)
}

// DealIDsByClientIDs implements Store.
func (s *PostgresStore) DealIDsByClientIDs(ctx context.Context, clientIDs []int64) ([]int64, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	return s.queryIDs(ctx,
		`SELECT id FROM deals WHERE is_deleted = false AND client_id = ANY($1) ORDER BY id`,
		clientIDs)
}

// DealIDsByPolicyVIN implements Store.
func (s *PostgresStore) DealIDsByPolicyVIN(ctx context.Context, vin string) ([]int64, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT p.deal_id
		FROM policies p
		JOIN deals d ON d.id = p.deal_id
		WHERE p.is_deleted = false
		  AND d.is_deleted = false
		  AND p.deal_id IS NOT NULL
		  AND p.vehicle_vin IS NOT NULL
		  AND translate(lower(p.vehicle_vin), $2, '') = $1
		ORDER BY p.deal_id`,
		vin, identifierStrip)
}

// DealIDsByPolicyNumber implements Store.
func (s *PostgresStore) DealIDsByPolicyNumber(ctx context.Context, number string) ([]int64, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT p.deal_id
		FROM policies p
		JOIN deals d ON d.id = p.deal_id
		WHERE p.is_deleted = false
		  AND d.is_deleted = false
		  AND p.deal_id IS NOT NULL
		  AND p.policy_number IS NOT NULL
		  AND translate(lower(p.policy_number), $2, '') = $1
		ORDER BY p.deal_id`,
		number, identifierStrip)
}

// DealIDsByExpenseContractor implements Store. The expense join keeps
// only policies with at least one non-deleted expense.
func (s *PostgresStore) DealIDsByExpenseContractor(ctx context.Context, contractor string) ([]int64, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT p.deal_id
		FROM expenses e
		JOIN policies p ON p.id = e.policy_id
		JOIN deals d ON d.id = p.deal_id
		WHERE e.is_deleted = false
		  AND p.is_deleted = false
		  AND d.is_deleted = false
		  AND p.deal_id IS NOT NULL
		  AND p.contractor IS NOT NULL
		  AND lower(trim(p.contractor)) = $1
		ORDER BY p.deal_id`,
		contractor)
}

// DealIDsByClientEmail implements Store.
func (s *PostgresStore) DealIDsByClientEmail(ctx context.Context, email string) ([]int64, error) {
	return s.queryIDs(ctx, `
		SELECT d.id
		FROM deals d
		JOIN clients c ON c.id = d.client_id
		WHERE d.is_deleted = false
		  AND c.is_deleted = false
		  AND c.email IS NOT NULL
		  AND lower(trim(c.email)) = $1
		ORDER BY d.id`,
		email)
}

// DealIDsByVehicle implements Store.
func (s *PostgresStore) DealIDsByVehicle(ctx context.Context, brand, model string) ([]int64, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT p.deal_id
		FROM policies p
		JOIN deals d ON d.id = p.deal_id
		WHERE p.is_deleted = false
		  AND d.is_deleted = false
		  AND p.deal_id IS NOT NULL
		  AND p.vehicle_brand IS NOT NULL
		  AND p.vehicle_model IS NOT NULL
		  AND lower(trim(p.vehicle_brand)) = $1
		  AND lower(trim(p.vehicle_model)) = $2
		ORDER BY p.deal_id`,
		brand, model)
}

// ClientsByPhoneDigits implements Store.
func (s *PostgresStore) ClientsByPhoneDigits(ctx context.Context, variants []string) ([]*models.Client, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE is_deleted = false
		  AND phone IS NOT NULL
		  AND translate(lower(phone), $2, '') = ANY($1)
		ORDER BY id`,
		variants, phoneStrip)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query clients by phone")
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, errors.Wrap(rows.Err(), "failed to read client rows")
}

func (s *PostgresStore) policiesByDealIDs(ctx context.Context, dealIDs []int64) ([]*models.Policy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+policyColumns+` FROM policies
		 WHERE is_deleted = false AND deal_id = ANY($1) ORDER BY id`,
		dealIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query policies")
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, errors.Wrap(rows.Err(), "failed to read policy rows")
}

func (s *PostgresStore) clientsByIDs(ctx context.Context, clientIDs []int64) (map[int64]*models.Client, error) {
	clients := make(map[int64]*models.Client, len(clientIDs))
	if len(clientIDs) == 0 {
		return clients, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ANY($1)`, clientIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query clients")
	}
	defer rows.Close()

	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients[client.ID] = client
	}
	return clients, errors.Wrap(rows.Err(), "failed to read client rows")
}

func (s *PostgresStore) attachExpenses(ctx context.Context, policies []*models.Policy) error {
	if len(policies) == 0 {
		return nil
	}
	policyIDs := make([]int64, 0, len(policies))
	policiesByID := make(map[int64]*models.Policy, len(policies))
	for _, policy := range policies {
		policyIDs = append(policyIDs, policy.ID)
		policiesByID[policy.ID] = policy
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE policy_id = ANY($1) ORDER BY id`,
		policyIDs)
	if err != nil {
		return errors.Wrap(err, "failed to query expenses")
	}
	defer rows.Close()

	for rows.Next() {
		expense := &models.Expense{}
		err := rows.Scan(
			&expense.ID, &expense.PaymentID, &expense.PolicyID, &expense.Amount,
			&expense.ExpenseType, &expense.ExpenseDate, &expense.Note, &expense.IsDeleted,
		)
		if err != nil {
			return errors.Wrap(err, "failed to scan expense row")
		}
		if policy, ok := policiesByID[expense.PolicyID]; ok {
			policy.Expenses = append(policy.Expenses, expense)
		}
	}
	return errors.Wrap(rows.Err(), "failed to read expense rows")
}

func (s *PostgresStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query deal ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan deal id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "failed to read deal id rows")
}

func scanDeals(rows pgx.Rows) ([]*models.Deal, error) {
	defer rows.Close()

	var deals []*models.Deal
	for rows.Next() {
		deal := &models.Deal{}
		err := rows.Scan(
			&deal.ID, &deal.ClientID, &deal.Status, &deal.Description, &deal.Calculations,
			&deal.IsClosed, &deal.ClosedReason, &deal.DriveFolderPath, &deal.DriveFolderLink,
			&deal.StartDate, &deal.ReminderDate, &deal.IsDeleted,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan deal row")
		}
		deals = append(deals, deal)
	}
	return deals, errors.Wrap(rows.Err(), "failed to read deal rows")
}

func scanPolicy(row pgx.Row) (*models.Policy, error) {
	policy := &models.Policy{}
	err := row.Scan(
		&policy.ID, &policy.ClientID, &policy.DealID, &policy.PolicyNumber,
		&policy.InsuranceType, &policy.InsuranceCompany, &policy.Contractor,
		&policy.SalesChannel, &policy.StartDate, &policy.EndDate,
		&policy.VehicleBrand, &policy.VehicleModel, &policy.VehicleVIN,
		&policy.Note, &policy.DriveFolderPath, &policy.DriveFolderLink,
		&policy.RenewedTo, &policy.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func scanClient(row pgx.Row) (*models.Client, error) {
	client := &models.Client{}
	err := row.Scan(
		&client.ID, &client.Name, &client.Phone, &client.Email, &client.IsCompany,
		&client.Note, &client.DriveFolderPath, &client.DriveFolderLink, &client.IsDeleted,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan client row")
	}
	return client, nil
}

func keys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
