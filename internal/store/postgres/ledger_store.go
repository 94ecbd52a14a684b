package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NomadCrew/nomad-crew-ledger/internal/store"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DBTX is the subset of *pgxpool.Pool the store needs. pgxmock pools satisfy it
// in tests.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure LedgerStore implements store.LedgerStore
var _ store.LedgerStore = (*LedgerStore)(nil)

// LedgerStore implements store.LedgerStore using PostgreSQL.
type LedgerStore struct {
	db  DBTX
	log *zap.SugaredLogger
}

// NewLedgerStore creates a new LedgerStore instance.
func NewLedgerStore(db DBTX) *LedgerStore {
	return &LedgerStore{
		db:  db,
		log: logger.Named("ledger.store"),
	}
}

const settlementColumns = `id, group_id, from_participant_id, to_participant_id, amount, status, created_at, updated_at`

// ListParticipants retrieves the participants of a group.
func (s *LedgerStore) ListParticipants(ctx context.Context, groupID string) ([]types.Participant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT participant_id, display_name
		FROM ledger_participants
		WHERE group_id = $1
		ORDER BY participant_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []types.Participant{}
	for rows.Next() {
		var p types.Participant
		if err := rows.Scan(&p.ID, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

// UpsertParticipant inserts a participant or refreshes its display name.
func (s *LedgerStore) UpsertParticipant(ctx context.Context, groupID string, p types.Participant) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO ledger_participants (group_id, participant_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, participant_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		groupID, p.ID, p.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}
	return nil
}

// ListExpenses loads the expenses of a group, then their payers and splits,
// and stitches them together preserving the stored split order.
func (s *LedgerStore) ListExpenses(ctx context.Context, groupID string) ([]types.Expense, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, group_id, description, currency, strategy, total_amount, created_by, created_at
		FROM ledger_expenses
		WHERE group_id = $1
		ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses := []types.Expense{}
	index := make(map[string]int)
	for rows.Next() {
		var e types.Expense
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.Currency, &e.Strategy,
			&e.TotalAmount, &e.CreatedBy, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Payers = []types.PayerShare{}
		e.Splits = []types.SplitShare{}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	if err := s.loadPayers(ctx, groupID, expenses, index); err != nil {
		return nil, err
	}
	if err := s.loadSplits(ctx, groupID, expenses, index); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *LedgerStore) loadPayers(ctx context.Context, groupID string, expenses []types.Expense, index map[string]int) error {
	rows, err := s.db.Query(ctx,
		`SELECT p.expense_id, p.participant_id, p.amount
		FROM ledger_expense_payers p
		JOIN ledger_expenses e ON e.id = p.expense_id
		WHERE e.group_id = $1
		ORDER BY p.expense_id, p.position`, groupID)
	if err != nil {
		return fmt.Errorf("failed to list expense payers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var p types.PayerShare
		if err := rows.Scan(&expenseID, &p.ParticipantID, &p.Amount); err != nil {
			return fmt.Errorf("failed to scan expense payer: %w", err)
		}
		i, ok := index[expenseID]
		if !ok {
			continue
		}
		expenses[i].Payers = append(expenses[i].Payers, p)
	}
	return rows.Err()
}

func (s *LedgerStore) loadSplits(ctx context.Context, groupID string, expenses []types.Expense, index map[string]int) error {
	rows, err := s.db.Query(ctx,
		`SELECT sp.expense_id, sp.participant_id, sp.amount, sp.percentage::text, sp.share_units, sp.settled
		FROM ledger_expense_splits sp
		JOIN ledger_expenses e ON e.id = sp.expense_id
		WHERE e.group_id = $1
		ORDER BY sp.expense_id, sp.position`, groupID)
	if err != nil {
		return fmt.Errorf("failed to list expense splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var percentage *string
		var sp types.SplitShare
		if err := rows.Scan(&expenseID, &sp.ParticipantID, &sp.Amount, &percentage, &sp.ShareUnits, &sp.Settled); err != nil {
			return fmt.Errorf("failed to scan expense split: %w", err)
		}
		if percentage != nil {
			d, err := decimal.NewFromString(*percentage)
			if err != nil {
				return fmt.Errorf("invalid stored percentage %q: %w", *percentage, err)
			}
			sp.Percentage = &d
		}
		i, ok := index[expenseID]
		if !ok {
			continue
		}
		expenses[i].Splits = append(expenses[i].Splits, sp)
	}
	return rows.Err()
}

// CreateExpense inserts the expense row with its payers and splits in one
// transaction.
func (s *LedgerStore) CreateExpense(ctx context.Context, e *types.Expense) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := insertExpense(ctx, tx, e); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.Warnw("Failed to roll back expense insert", "expenseID", e.ID, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit expense: %w", err)
	}
	s.log.Debugw("Expense stored", "expenseID", e.ID, "groupID", e.GroupID, "splits", len(e.Splits))
	return nil
}

func insertExpense(ctx context.Context, tx pgx.Tx, e *types.Expense) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO ledger_expenses (id, group_id, description, currency, strategy, total_amount, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		e.ID, e.GroupID, e.Description, e.Currency, e.Strategy, e.TotalAmount, e.CreatedBy,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, p := range e.Payers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ledger_expense_payers (expense_id, participant_id, amount, position)
			VALUES ($1, $2, $3, $4)`,
			e.ID, p.ParticipantID, p.Amount, i); err != nil {
			return fmt.Errorf("failed to insert expense payer: %w", err)
		}
	}

	for i, sp := range e.Splits {
		var percentage *string
		if sp.Percentage != nil {
			v := sp.Percentage.String()
			percentage = &v
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO ledger_expense_splits (expense_id, participant_id, amount, percentage, share_units, settled, position)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
			e.ID, sp.ParticipantID, sp.Amount, percentage, sp.ShareUnits, sp.Settled, i); err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}
	return nil
}

// ListSettlements retrieves every settlement of a group, oldest first.
func (s *LedgerStore) ListSettlements(ctx context.Context, groupID string) ([]types.Settlement, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+settlementColumns+`
		FROM ledger_settlements
		WHERE group_id = $1
		ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	settlements := []types.Settlement{}
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	return settlements, nil
}

// CreateSettlement inserts a settlement and fills in its timestamps.
func (s *LedgerStore) CreateSettlement(ctx context.Context, st *types.Settlement) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO ledger_settlements (id, group_id, from_participant_id, to_participant_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		st.ID, st.GroupID, st.FromParticipantID, st.ToParticipantID, st.Amount, string(st.Status),
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID within a group.
func (s *LedgerStore) GetSettlement(ctx context.Context, groupID, settlementID string) (*types.Settlement, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+settlementColumns+`
		FROM ledger_settlements
		WHERE group_id = $1 AND id = $2`, groupID, settlementID)

	st, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

// UpdateSettlementStatus performs a conditional status change. The row is only
// updated while its status still equals from.
func (s *LedgerStore) UpdateSettlementStatus(ctx context.Context, groupID, settlementID string, from, to types.SettlementStatus) (*types.Settlement, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE ledger_settlements
		SET status = $1, updated_at = NOW()
		WHERE group_id = $2 AND id = $3 AND status = $4
		RETURNING `+settlementColumns,
		string(to), groupID, settlementID, string(from))

	st, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	s.log.Infow("Settlement status changed", "settlementID", settlementID, "from", from, "to", to)
	return st, nil
}

func scanSettlement(row pgx.Row) (*types.Settlement, error) {
	var st types.Settlement
	var status string
	err := row.Scan(&st.ID, &st.GroupID, &st.FromParticipantID, &st.ToParticipantID,
		&st.Amount, &status, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan settlement: %w", err)
	}
	st.Status = types.SettlementStatus(status)
	return &st, nil
}
