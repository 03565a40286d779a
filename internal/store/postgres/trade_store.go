package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/marketlab/internal/domain"
)

// TradeStore implements domain.TradeStore on PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates a TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, round, agent, asset, action, quantity, price, status, created_at`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(
			&t.ID, &t.Round, &t.Agent, &t.Asset,
			&t.Action, &t.Quantity, &t.Price, &t.Status, &t.At,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch appends one committed round's records using a pgx batch.
// Records re-sent after a retry are skipped on their primary key.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	const query = `
		INSERT INTO trades (id, round, agent, asset, action, quantity, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			t.ID, t.Round, t.Agent, t.Asset,
			t.Action, t.Quantity, t.Price, t.Status, t.At)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// List returns trade records, newest first.
func (s *TradeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades ORDER BY created_at DESC, round DESC`
	query, args := applyListOpts(query, nil, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// ListByAgent returns one agent's trade records, newest first.
func (s *TradeStore) ListByAgent(ctx context.Context, agent string, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE agent = $1 ORDER BY created_at DESC, round DESC`
	query, args := applyListOpts(query, []any{agent}, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", agent, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for %s: %w", agent, err)
	}
	return trades, nil
}

// DeleteAll truncates the trade log on a full reset.
func (s *TradeStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE trades"); err != nil {
		return fmt.Errorf("postgres: truncate trades: %w", err)
	}
	return nil
}

// applyListOpts appends LIMIT/OFFSET clauses and their arguments.
func applyListOpts(query string, args []any, opts domain.ListOpts) (string, []any) {
	idx := len(args) + 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, opts.Limit)
		idx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, opts.Offset)
	}
	return query, args
}
