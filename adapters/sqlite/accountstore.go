package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mixwave/quotagate/ports"
)

// AccountStore implements ports.AccountStore using SQLite.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new SQLite account store.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, email, plan, usage_count, max_uses, handle,
	founder_candidate, marketing_opt_in, last_action_at, created_at, updated_at`

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (ports.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ?
	`, id)
	return scanAccount(row)
}

// GetByEmail retrieves an account by email (case-insensitive).
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (ports.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = ?
	`, email)
	return scanAccount(row)
}

// Create stores a new account.
func (s *AccountStore) Create(ctx context.Context, a ports.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, plan, usage_count, max_uses, handle,
			founder_candidate, marketing_opt_in, last_action_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Email, a.Plan, a.UsageCount, nullInt64(a.MaxUses), a.Handle,
		a.FounderCandidate, a.MarketingOptIn, nullTime(a.LastActionAt), a.CreatedAt, a.UpdatedAt)

	if err != nil && isUniqueConstraintError(err) {
		return ports.ErrDuplicate
	}
	return err
}

// Update modifies mutable account metadata. usage_count and plan are owned
// by IncrementUsage/DecrementUsage/UpdatePlan and are not written here.
func (s *AccountStore) Update(ctx context.Context, a ports.Account) error {
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET email = ?, handle = ?, founder_candidate = ?, marketing_opt_in = ?, updated_at = ?
		WHERE id = ?
	`, a.Email, a.Handle, a.FounderCandidate, a.MarketingOptIn, a.UpdatedAt, a.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ports.ErrDuplicate
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps usage_count by one, conditioned on the stored count
// still equalling expected. Zero rows affected means a concurrent writer
// won the race; that is surfaced as ErrStale, never retried here.
func (s *AccountStore) IncrementUsage(ctx context.Context, id string, expected int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET usage_count = usage_count + 1, last_action_at = ?, updated_at = ?
		WHERE id = ? AND usage_count = ?
	`, at, at, id, expected)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrStale
	}
	return nil
}

// DecrementUsage lowers usage_count by one, floored at zero, and returns
// the new count. Refunds are not optimistic-locked: a lost race here can
// only under-refund, which never loosens access control.
func (s *AccountStore) DecrementUsage(ctx context.Context, id string) (int64, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET usage_count = MAX(usage_count - 1, 0), updated_at = ?
		WHERE id = ?
	`, now, id)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, ports.ErrNotFound
	}

	var count int64
	err = s.db.QueryRowContext(ctx, `SELECT usage_count FROM accounts WHERE id = ?`, id).Scan(&count)
	return count, err
}

// UpdatePlan applies a plan transition.
func (s *AccountStore) UpdatePlan(ctx context.Context, id string, upd ports.PlanUpdate, at time.Time) error {
	set := []string{"plan = ?", "updated_at = ?"}
	args := []any{upd.Plan, at}

	if upd.ClearMaxUses {
		set = append(set, "max_uses = NULL")
	} else if upd.MaxUses != nil {
		set = append(set, "max_uses = ?")
		args = append(args, *upd.MaxUses)
	}
	if upd.FounderCandidate != nil {
		set = append(set, "founder_candidate = ?")
		args = append(args, *upd.FounderCandidate)
	}
	if upd.MarketingOptIn != nil {
		set = append(set, "marketing_opt_in = ?")
		args = append(args, *upd.MarketingOptIn)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (ports.Account, error) {
	var a ports.Account
	var maxUses sql.NullInt64
	var lastAction sql.NullTime

	err := row.Scan(
		&a.ID, &a.Email, &a.Plan, &a.UsageCount, &maxUses, &a.Handle,
		&a.FounderCandidate, &a.MarketingOptIn, &lastAction, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Account{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Account{}, err
	}

	if maxUses.Valid {
		a.MaxUses = &maxUses.Int64
	}
	if lastAction.Valid {
		t := lastAction.Time
		a.LastActionAt = &t
	}
	return a, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
