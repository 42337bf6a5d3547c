package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predicthub/predicthub/internal/domain"
)

// MarketViewStore implements domain.MarketViewStore. Each snapshot appends a
// snapshot_runs row and upserts its views into market_views keyed by market
// id, so market_views always holds the latest known view of every market.
type MarketViewStore struct {
	pool *pgxpool.Pool
}

// NewMarketViewStore creates a MarketViewStore backed by the given pool.
func NewMarketViewStore(pool *pgxpool.Pool) *MarketViewStore {
	return &MarketViewStore{pool: pool}
}

const upsertViewQuery = `
	INSERT INTO market_views (
		market_id, question, arbitrator, formatted_date,
		yes_bets, no_bets, outcome, weighted_yes, weighted_no,
		run_id, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5::numeric, $6::numeric, $7, $8::numeric, $9::numeric,
		$10, NOW()
	)
	ON CONFLICT (market_id) DO UPDATE SET
		question       = EXCLUDED.question,
		arbitrator     = EXCLUDED.arbitrator,
		formatted_date = EXCLUDED.formatted_date,
		yes_bets       = EXCLUDED.yes_bets,
		no_bets        = EXCLUDED.no_bets,
		outcome        = EXCLUDED.outcome,
		weighted_yes   = EXCLUDED.weighted_yes,
		weighted_no    = EXCLUDED.weighted_no,
		run_id         = EXCLUDED.run_id,
		updated_at     = NOW()`

// SaveSnapshot records the run and upserts its views in one transaction.
func (s *MarketViewStore) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: save snapshot %s: begin: %w", snap.RunID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const runQuery = `
		INSERT INTO snapshot_runs (run_id, market_count, views, error, fetched_at)
		VALUES ($1, $2::numeric, $3, $4, $5)`
	if _, err := tx.Exec(ctx, runQuery,
		snap.RunID, fmt.Sprint(snap.Count), len(snap.Markets), snap.Err, snap.FetchedAt,
	); err != nil {
		return fmt.Errorf("postgres: save snapshot %s: run: %w", snap.RunID, err)
	}

	if len(snap.Markets) > 0 {
		batch := &pgx.Batch{}
		for _, m := range snap.Markets {
			batch.Queue(upsertViewQuery,
				int64(m.ID), m.Question, m.Arbitrator, m.FormattedDate,
				numeric(m.YesBets), numeric(m.NoBets), int16(m.Outcome),
				numeric(m.WeightedYes), numeric(m.WeightedNo),
				snap.RunID,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for _, m := range snap.Markets {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: save snapshot %s: market %d: %w", snap.RunID, m.ID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: save snapshot %s: close batch: %w", snap.RunID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: save snapshot %s: commit: %w", snap.RunID, err)
	}
	return nil
}

// Latest returns the most recent view of every stored market, ordered by id.
func (s *MarketViewStore) Latest(ctx context.Context) ([]domain.MarketView, error) {
	const query = `
		SELECT market_id, question, arbitrator, formatted_date,
		       yes_bets::text, no_bets::text, outcome,
		       weighted_yes::text, weighted_no::text
		FROM market_views
		ORDER BY market_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest market views: %w", err)
	}
	defer rows.Close()

	var views []domain.MarketView
	for rows.Next() {
		var (
			v                  domain.MarketView
			id                 int64
			outcome            int16
			yes, no, wYes, wNo string
		)
		if err := rows.Scan(&id, &v.Question, &v.Arbitrator, &v.FormattedDate,
			&yes, &no, &outcome, &wYes, &wNo); err != nil {
			return nil, fmt.Errorf("postgres: scan market view: %w", err)
		}
		v.ID = uint64(id)
		v.Outcome = domain.Outcome(outcome)
		if v.YesBets, err = parseNumeric(yes); err != nil {
			return nil, err
		}
		if v.NoBets, err = parseNumeric(no); err != nil {
			return nil, err
		}
		if v.WeightedYes, err = parseNumeric(wYes); err != nil {
			return nil, err
		}
		if v.WeightedNo, err = parseNumeric(wNo); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: latest market views rows: %w", err)
	}
	return views, nil
}

// ListRuns returns recorded refresh runs, newest first.
func (s *MarketViewStore) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.SnapshotRun, error) {
	query, args := windowQuery(
		`SELECT run_id, market_count::text, views, error, fetched_at FROM snapshot_runs`,
		"fetched_at", opts,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshot runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SnapshotRun
	for rows.Next() {
		var (
			r     domain.SnapshotRun
			count string
		)
		if err := rows.Scan(&r.RunID, &count, &r.MarketCount, &r.Err, &r.FetchedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot run: %w", err)
		}
		n, err := parseNumeric(count)
		if err != nil {
			return nil, err
		}
		r.Count = n.Uint64()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshot runs rows: %w", err)
	}
	return runs, nil
}

// numeric renders a uint256 for a NUMERIC(78,0) parameter.
func numeric(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseNumeric(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: invalid numeric %q", s)
	}
	return n, nil
}

var _ domain.MarketViewStore = (*MarketViewStore)(nil)
