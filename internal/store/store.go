// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store persists the collector's decoded stream and classification
// results: raw rows into SQLite for querying, plus per-run CSV files for
// the training tooling.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/serve_sense/internal/decision"
	"github.com/relabs-tech/serve_sense/internal/packet"
)

// schema.sql defines the samples and results tables.
//
//go:embed schema.sql
var schemaSQL string

// DB wraps the collector's SQLite database.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	log.Printf("store: database ready at %s", path)
	return &DB{db}, nil
}

// RecordSample inserts one decoded wire packet.
func (d *DB) RecordSample(p packet.ServePacket) error {
	const query = `
		INSERT INTO samples (millis, session, sequence, ax, ay, az, gx, gy, gz, capture, marker)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.Exec(query,
		p.Millis, p.Session, p.Sequence,
		p.Sample.Ax, p.Sample.Ay, p.Sample.Az,
		p.Sample.Gx, p.Sample.Gy, p.Sample.Gz,
		boolToInt(p.Capture()), boolToInt(p.Marker()),
	)
	if err != nil {
		return fmt.Errorf("store: insert sample: %w", err)
	}
	return nil
}

// RecordResult parses and inserts one classification result message.
func (d *DB) RecordResult(msg string) error {
	label, percents, err := decision.ParseMessage(msg)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO results (label, p0, p1, p2, p3, raw_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := d.Exec(query, label, percents[0], percents[1], percents[2], percents[3], msg); err != nil {
		return fmt.Errorf("store: insert result: %w", err)
	}
	return nil
}

// SessionSampleCount returns how many samples a session has stored so far.
func (d *DB) SessionSampleCount(session uint16) (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM samples WHERE session = ?`, session).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count session %d: %w", session, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
