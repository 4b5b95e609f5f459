package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"AgentTreasury/internal/model"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ledger_events (
		id          TEXT PRIMARY KEY,
		seq         INTEGER NOT NULL UNIQUE,
		timestamp   INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		actor       TEXT,
		investor    TEXT,
		amount      TEXT,
		shares      TEXT,
		agent_id    INTEGER,
		pnl         TEXT,
		payload     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_ts ON ledger_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_kind ON ledger_events(kind)`,

	`CREATE TABLE IF NOT EXISTS ledger_snapshots (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp    INTEGER NOT NULL,
		total_shares TEXT,
		total_assets TEXT,
		share_price  TEXT,
		investors    INTEGER,
		agents       INTEGER,
		stopped      INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON ledger_snapshots(timestamp)`,
}

// SQLiteRecorder persists the journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r, err := NewWithDB(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

// NewWithDB wraps an already opened database and runs migrations.
func NewWithDB(db *sql.DB, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &SQLiteRecorder{db: db, log: log.Named("recorder"), now: time.Now}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	for _, s := range migrations {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvent(evt model.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT INTO ledger_events
		(id, seq, timestamp, kind, actor, investor, amount, shares, agent_id, pnl, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		evt.ID.String(), int64(evt.Seq), evt.At.Unix(), string(evt.Kind),
		evt.Actor.String(), evt.Investor.String(),
		evt.Amount.String(), evt.Shares.String(),
		int64(evt.AgentID), evt.PnL.String(),
		string(payload),
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stopped := 0
	if snap.Stopped {
		stopped = 1
	}
	_, err := r.db.Exec(`INSERT INTO ledger_snapshots
		(timestamp, total_shares, total_assets, share_price, investors, agents, stopped)
		VALUES (?,?,?,?,?,?,?)`,
		r.now().Unix(), snap.TotalShares.String(), snap.TotalAssets.String(),
		snap.SharePrice.String(), snap.Investors, snap.Agents, stopped,
	)
	return err
}

func (r *SQLiteRecorder) Recent(n int) ([]model.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT payload FROM ledger_events ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var evt model.Event
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
