package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ursuslabs/ursus-realtime/internal/config"
	"github.com/ursuslabs/ursus-realtime/internal/model"
)

// timeframes whitelists the PriceHistory arguments. Intervals are
// interpolated into SQL, so only values from this table may reach a query.
var timeframes = map[string]struct {
	bucket   string
	lookback string
}{
	"1h":  {"1 minute", "1 hour"},
	"24h": {"5 minutes", "24 hours"},
	"7d":  {"1 hour", "7 days"},
	"30d": {"4 hours", "30 days"},
}

// Connect creates and pings a connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Postgres implements Service against the indexer's tables.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a query service over an existing pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// Ping verifies the connection is healthy.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// AgentStats returns the aggregate view of one agent token.
func (p *Postgres) AgentStats(ctx context.Context, mint string) (*model.AgentStats, error) {
	var (
		stats     model.AgentStats
		updatedAt time.Time
	)
	err := p.pool.QueryRow(ctx, `
		SELECT a.mint, a.name, a.symbol, a.price, a.market_cap, a.graduated,
		       COALESCE(t.volume, 0), COALESCE(t.trades, 0),
		       COALESCE(h.holders, 0), a.updated_at
		FROM agents a
		LEFT JOIN LATERAL (
			SELECT SUM(sol_amount) AS volume, COUNT(*) AS trades
			FROM trades
			WHERE agent_mint = a.mint AND executed_at > now() - interval '24 hours'
		) t ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS holders FROM holdings
			WHERE agent_mint = a.mint AND amount > 0
		) h ON true
		WHERE a.mint = $1
	`, mint).Scan(
		&stats.AgentMint, &stats.Name, &stats.Symbol,
		&stats.Price, &stats.MarketCap, &stats.Graduated,
		&stats.Volume24h, &stats.Trades24h, &stats.HolderCount,
		&updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query agent stats: %w", err)
	}

	stats.UpdatedAt = updatedAt.UnixMilli()
	return &stats, nil
}

// PriceHistory returns bucketed OHLCV points for an agent.
func (p *Postgres) PriceHistory(ctx context.Context, mint, timeframe string) ([]model.PricePoint, error) {
	tf, ok := timeframes[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeframe, timeframe)
	}

	// bucket and lookback come from the whitelist above, never from input.
	sql := fmt.Sprintf(`
		SELECT date_bin(interval '%s', executed_at, 'epoch'::timestamptz) AS bucket,
		       (array_agg(price ORDER BY executed_at ASC))[1]  AS open,
		       MAX(price)                                      AS high,
		       MIN(price)                                      AS low,
		       (array_agg(price ORDER BY executed_at DESC))[1] AS close,
		       COALESCE(SUM(sol_amount), 0)                    AS volume
		FROM trades
		WHERE agent_mint = $1 AND executed_at > now() - interval '%s'
		GROUP BY bucket
		ORDER BY bucket ASC
	`, tf.bucket, tf.lookback)

	rows, err := p.pool.Query(ctx, sql, mint)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var (
			pt     model.PricePoint
			bucket time.Time
		)
		if err := rows.Scan(&bucket, &pt.Open, &pt.High, &pt.Low, &pt.Close, &pt.Volume); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		pt.BucketStart = bucket.UnixMilli()
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history: %w", err)
	}
	return points, nil
}

// MarketData returns the platform-wide aggregate view.
func (p *Postgres) MarketData(ctx context.Context) (*model.MarketSnapshot, error) {
	var snap model.MarketSnapshot
	err := p.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM agents),
		       (SELECT COUNT(*) FROM agents WHERE graduated),
		       COALESCE((SELECT SUM(sol_amount) FROM trades
		                 WHERE executed_at > now() - interval '24 hours'), 0),
		       COALESCE((SELECT COUNT(*) FROM trades
		                 WHERE executed_at > now() - interval '24 hours'), 0)
	`).Scan(&snap.AgentCount, &snap.GraduatedCount, &snap.Volume24h, &snap.Trades24h)
	if err != nil {
		return nil, fmt.Errorf("query market data: %w", err)
	}

	snap.UpdatedAt = time.Now().UnixMilli()
	return &snap, nil
}

// OrderBook returns resting orders for a graduated agent, best prices first.
func (p *Postgres) OrderBook(ctx context.Context, mint string) (*model.OrderBook, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT side, price, SUM(size) AS size
		FROM orders
		WHERE agent_mint = $1 AND open
		GROUP BY side, price
		ORDER BY side, price DESC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("query order book: %w", err)
	}
	defer rows.Close()

	book := &model.OrderBook{
		AgentMint: mint,
		UpdatedAt: time.Now().UnixMilli(),
	}
	for rows.Next() {
		var (
			side  string
			level model.OrderBookLevel
		)
		if err := rows.Scan(&side, &level.Price, &level.Size); err != nil {
			return nil, fmt.Errorf("scan order level: %w", err)
		}
		switch side {
		case "bid":
			book.Bids = append(book.Bids, level)
		case "ask":
			book.Asks = append(book.Asks, level)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order book: %w", err)
	}

	// Bids arrive highest-first; asks need lowest-first.
	for i, j := 0, len(book.Asks)-1; i < j; i, j = i+1, j-1 {
		book.Asks[i], book.Asks[j] = book.Asks[j], book.Asks[i]
	}
	return book, nil
}
