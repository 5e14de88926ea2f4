// Package ledger records deposits and agent state transitions in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("ledger: closed")

// Run describes one simulation session.
type Run struct {
	ID      string
	Scene   string
	Seed    int64
	Started time.Time
}

type Deposit struct {
	Tick       uint64
	Agent      string
	Zone       string
	Item       string
	Kind       string
	StackIndex int
	LocalY     float64
}

type Transition struct {
	Tick  uint64
	Agent string
	From  string
	To    string
}

type reqKind int

const (
	reqDeposit reqKind = iota + 1
	reqTransition
	reqFlush
)

type req struct {
	kind       reqKind
	deposit    Deposit
	transition Transition
	done       chan error
}

// SQLiteLedger writes on a single goroutine so the tick loop never waits on
// disk. Records are dropped when the queue is full.
type SQLiteLedger struct {
	db  *sql.DB
	run Run
	log *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

const queueSize = 4096

// OpenSQLite opens (creating if needed) the ledger at path and registers a new
// run. An empty run ID is replaced with a random UUID. log may be nil.
func OpenSQLite(path string, run Run, log *zap.Logger) (*SQLiteLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: schema: %w", err)
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Started.IsZero() {
		run.Started = time.Now().UTC()
	}
	if _, err := db.Exec(`INSERT INTO runs(id, scene, seed, started_at) VALUES(?,?,?,?)`,
		run.ID, run.Scene, run.Seed, run.Started.Format(time.RFC3339Nano)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: insert run: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	l := &SQLiteLedger{db: db, run: run, log: log, ch: make(chan req, queueSize)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scene TEXT NOT NULL,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS deposits (
			run_id TEXT NOT NULL REFERENCES runs(id),
			tick INTEGER NOT NULL,
			agent TEXT NOT NULL,
			zone TEXT NOT NULL,
			item TEXT NOT NULL,
			kind TEXT NOT NULL,
			stack_index INTEGER NOT NULL,
			local_y REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS deposits_run_zone ON deposits(run_id, zone);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			run_id TEXT NOT NULL REFERENCES runs(id),
			tick INTEGER NOT NULL,
			agent TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS transitions_run_agent ON transitions(run_id, agent);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *SQLiteLedger) Run() Run { return l.run }

// Dropped is the number of records discarded because the queue was full.
func (l *SQLiteLedger) Dropped() uint64 { return l.dropped.Load() }

func (l *SQLiteLedger) RecordDeposit(d Deposit) {
	l.enqueue(req{kind: reqDeposit, deposit: d})
}

func (l *SQLiteLedger) RecordTransition(t Transition) {
	l.enqueue(req{kind: reqTransition, transition: t})
}

func (l *SQLiteLedger) enqueue(r req) {
	if l == nil || l.closed.Load() {
		return
	}
	select {
	case l.ch <- r:
	default:
		l.dropped.Add(1)
	}
}

// Flush waits until everything queued so far is committed.
func (l *SQLiteLedger) Flush(ctx context.Context) error {
	if l == nil || l.closed.Load() {
		return ErrClosed
	}
	done := make(chan error, 1)
	select {
	case l.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ZoneTotals counts committed deposits per zone for the current run.
func (l *SQLiteLedger) ZoneTotals(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT zone, COUNT(*) FROM deposits WHERE run_id = ? GROUP BY zone`, l.run.ID)
	if err != nil {
		return nil, fmt.Errorf("ledger: zone totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			zone string
			n    int
		)
		if err := rows.Scan(&zone, &n); err != nil {
			return nil, fmt.Errorf("ledger: zone totals: %w", err)
		}
		out[zone] = n
	}
	return out, rows.Err()
}

// Transitions returns the committed transitions of agent in tick order.
func (l *SQLiteLedger) Transitions(ctx context.Context, agent string) ([]Transition, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT tick, agent, from_state, to_state FROM transitions WHERE run_id = ? AND agent = ? ORDER BY rowid`, l.run.ID, agent)
	if err != nil {
		return nil, fmt.Errorf("ledger: transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t    Transition
			tick int64
		)
		if err := rows.Scan(&tick, &t.Agent, &t.From, &t.To); err != nil {
			return nil, fmt.Errorf("ledger: transitions: %w", err)
		}
		t.Tick = uint64(tick)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		err = l.db.Close()
	})
	return err
}

func (l *SQLiteLedger) loop() {
	ctx := context.Background()

	var (
		tx          *sql.Tx
		opCount     int
		commitEvery = 500
	)

	commit := func() error {
		err := l.commitBatch(tx, opCount)
		tx = nil
		opCount = 0
		return err
	}

	for r := range l.ch {
		if r.kind == reqFlush {
			r.done <- commit()
			continue
		}
		if tx == nil {
			txx, err := l.db.BeginTx(ctx, nil)
			if err != nil {
				l.dropped.Add(1)
				l.log.Warn("ledger begin failed", zap.Error(err))
				continue
			}
			tx = txx
		}

		var err error
		switch r.kind {
		case reqDeposit:
			d := r.deposit
			_, err = tx.Exec(`INSERT INTO deposits(run_id, tick, agent, zone, item, kind, stack_index, local_y) VALUES(?,?,?,?,?,?,?,?)`,
				l.run.ID, int64(d.Tick), d.Agent, d.Zone, d.Item, d.Kind, d.StackIndex, d.LocalY)
		case reqTransition:
			t := r.transition
			_, err = tx.Exec(`INSERT INTO transitions(run_id, tick, agent, from_state, to_state) VALUES(?,?,?,?,?)`,
				l.run.ID, int64(t.Tick), t.Agent, t.From, t.To)
		}
		if err != nil {
			l.dropped.Add(1)
			l.log.Warn("ledger insert failed", zap.Error(err))
			continue
		}
		opCount++

		if opCount >= commitEvery || len(l.ch) == 0 {
			_ = commit()
		}
	}
	_ = commit()
}

// commitBatch commits the n records written to tx. On failure they count as
// dropped.
func (l *SQLiteLedger) commitBatch(tx *sql.Tx, n int) error {
	if tx == nil {
		return nil
	}
	if err := tx.Commit(); err != nil {
		l.dropped.Add(uint64(n))
		l.log.Warn("ledger commit failed", zap.Int("records", n), zap.Error(err))
		return err
	}
	return nil
}
