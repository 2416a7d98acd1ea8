package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

// SQLiteStore persists closed trades and portfolio snapshots. It
// implements domain.TradeRepository.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trade_records (
			position_id TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			action TEXT NOT NULL,
			size REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			pnl REAL NOT NULL,
			close_reason TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			closed_at DATETIME NOT NULL,
			hold_time_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_token ON trade_records(token);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_closed_at ON trade_records(closed_at);`,
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			total_value REAL NOT NULL,
			cash REAL NOT NULL,
			open_positions INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON portfolio_snapshots(timestamp);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTradeRecord(ctx context.Context, record *domain.TradeRecord) error {
	query := `INSERT OR IGNORE INTO trade_records (position_id, token, action, size, entry_price, exit_price, pnl, close_reason, opened_at, closed_at, hold_time_ns)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		record.PositionID, record.Token, record.Action, record.Size, record.EntryPrice,
		record.ExitPrice, record.PnL, record.CloseReason, record.OpenedAt, record.ClosedAt,
		int64(record.HoldTime))
	return err
}

func (s *SQLiteStore) ListTradeRecords(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	query := `SELECT position_id, token, action, size, entry_price, exit_price, pnl, close_reason, opened_at, closed_at, hold_time_ns
			  FROM trade_records ORDER BY closed_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		var holdNs int64
		if err := rows.Scan(&r.PositionID, &r.Token, &r.Action, &r.Size, &r.EntryPrice,
			&r.ExitPrice, &r.PnL, &r.CloseReason, &r.OpenedAt, &r.ClosedAt, &holdNs); err != nil {
			return nil, err
		}
		r.HoldTime = time.Duration(holdNs)
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	query := `INSERT INTO portfolio_snapshots (timestamp, total_value, cash, open_positions)
			  VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		snap.Timestamp, snap.TotalValue, snap.Cash, snap.OpenPositions)
	return err
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	query := `SELECT timestamp, total_value, cash, open_positions
			  FROM portfolio_snapshots ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*domain.PortfolioSnapshot
	for rows.Next() {
		var snap domain.PortfolioSnapshot
		if err := rows.Scan(&snap.Timestamp, &snap.TotalValue, &snap.Cash, &snap.OpenPositions); err != nil {
			return nil, err
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
