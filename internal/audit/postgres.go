// Package audit records completed packet transfers to Postgres, adapted
// using the database/sql + lib/pq driver
// registration, connection-pool tuning, and InitSchema-on-connect pattern.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/arkforge/pktudp/pktconn"
)

// Store persists pktconn.TransferEvent records as they complete.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using dsn (a libpq connection string) and
// ensures the transfers table exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS transfers (
		id SERIAL PRIMARY KEY,
		pkt_id BIGINT NOT NULL,
		pkt_sz INTEGER NOT NULL,
		direction VARCHAR(8) NOT NULL,
		peer_addr VARCHAR(64) NOT NULL,
		frames_retransmitted INTEGER NOT NULL,
		duration_ms DOUBLE PRECISION NOT NULL,
		completed_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_peer ON transfers(peer_addr);
	CREATE INDEX IF NOT EXISTS idx_transfers_completed_at ON transfers(completed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordTransfer implements pktconn.Recorder.
func (s *Store) RecordTransfer(ev pktconn.TransferEvent) {
	_, _ = s.db.Exec(
		`INSERT INTO transfers (pkt_id, pkt_sz, direction, peer_addr, frames_retransmitted, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.PktID, ev.PktSz, ev.Direction, ev.PeerAddr, ev.FramesRetransmitted,
		float64(ev.Duration.Microseconds())/1000.0,
	)
}

// RecentTransfers returns the most recent n transfer records for peerAddr.
func (s *Store) RecentTransfers(peerAddr string, n int) ([]pktconn.TransferEvent, error) {
	rows, err := s.db.Query(
		`SELECT pkt_id, pkt_sz, direction, peer_addr, frames_retransmitted, duration_ms
		 FROM transfers WHERE peer_addr = $1 ORDER BY completed_at DESC LIMIT $2`,
		peerAddr, n,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent transfers: %w", err)
	}
	defer rows.Close()

	var out []pktconn.TransferEvent
	for rows.Next() {
		var ev pktconn.TransferEvent
		var durationMs float64
		if err := rows.Scan(&ev.PktID, &ev.PktSz, &ev.Direction, &ev.PeerAddr, &ev.FramesRetransmitted, &durationMs); err != nil {
			return nil, fmt.Errorf("audit: scan transfer: %w", err)
		}
		ev.Duration = time.Duration(durationMs * float64(time.Millisecond))
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
