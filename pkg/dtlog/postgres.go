package dtlog

import (
	"context"
	"fmt"
	"time"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog persists decision log entries to a Postgres table via a
// background writer goroutine, so Append never blocks the room's mailbox
// loop on network or database latency.
type PostgresLog struct {
	pool   *pgxpool.Pool
	log    logging.Logger
	queue  chan Entry
	done   chan struct{}
}

// NewPostgresLog connects to databaseURL, creates the decisions table if
// absent, and starts the background writer.
func NewPostgresLog(ctx context.Context, databaseURL string, log logging.Logger) (*PostgresLog, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("dtlog: parse database url: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("dtlog: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dtlog: database unreachable: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS songlist_decisions (
			decision_id UUID PRIMARY KEY,
			room_id TEXT NOT NULL,
			commit_iter INTEGER NOT NULL,
			decision TEXT NOT NULL,
			update_desc TEXT NOT NULL,
			at_ms BIGINT NOT NULL
		)
	`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dtlog: migration failed: %w", err)
	}

	if log == nil {
		log = logging.NewNopLogger()
	}

	p := &PostgresLog{
		pool:  pool,
		log:   log.With(logging.String("component", "dtlog")),
		queue: make(chan Entry, 256),
		done:  make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *PostgresLog) run() {
	for e := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := p.pool.Exec(ctx, `
			INSERT INTO songlist_decisions (decision_id, room_id, commit_iter, decision, update_desc, at_ms)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (decision_id) DO NOTHING
		`, e.ID, e.RoomID, e.CommitIter, e.Decision, e.Update, e.AtMs)
		cancel()
		if err != nil {
			p.log.Warn("dtlog write failed", logging.Error(err))
		}
	}
	close(p.done)
}

// Append enqueues e for the background writer. If the queue is full the
// entry is dropped and logged; the decision log is observability-only and
// must never exert backpressure on the protocol.
func (p *PostgresLog) Append(_ context.Context, e Entry) {
	select {
	case p.queue <- e:
	default:
		p.log.Warn("dtlog queue full, dropping entry", logging.Int("commit_iter", e.CommitIter))
	}
}

func (p *PostgresLog) Close() error {
	close(p.queue)
	<-p.done
	p.pool.Close()
	return nil
}
