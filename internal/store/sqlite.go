package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"parentdoctor/backend/internal/chat"
)

// Fixed width so created_at sorts correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS child (
		id TEXT PRIMARY KEY,
		family_id TEXT NOT NULL,
		child_name TEXT,
		date_of_birth TEXT,
		gender TEXT,
		medical_record TEXT,
		extracted_from_chat INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_child_family_created ON child (family_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS doctor (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		specialty TEXT,
		location TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
}

// SQLiteStore is the single-file backend for local runs and the chat CLI. It
// serves both the profile store and the doctor directory.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", trimmed+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema failed on %q: %w", firstLine(stmt), err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, familyID string) (*chat.ChildProfile, error) {
	var name, dob, gender, notes sql.NullString
	err := s.db.QueryRowContext(
		ctx,
		`SELECT child_name, date_of_birth, gender, medical_record
		 FROM child
		 WHERE family_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		familyID,
	).Scan(&name, &dob, &gender, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %w", chat.ErrStore, err)
	}

	var parsed *time.Time
	if dob.Valid && strings.TrimSpace(dob.String) != "" {
		value, err := time.Parse(time.DateOnly, strings.TrimSpace(dob.String))
		if err != nil {
			return nil, fmt.Errorf("%w: stored date_of_birth %q: %w", chat.ErrStore, dob.String, err)
		}
		parsed = &value
	}
	profile := profileFromColumns(name.String, parsed, gender.String, notes.String)
	return &profile, nil
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, familyID string, profile chat.ChildProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin upsert: %w", chat.ErrStore, err)
	}
	defer tx.Rollback()

	name, dobValue, gender, notes := profileColumns(profile)
	var dob any
	if value, ok := dobValue.(time.Time); ok {
		dob = value.Format(time.DateOnly)
	}
	now := s.now().UTC().Format(sqliteTimeLayout)

	var id string
	err = tx.QueryRowContext(
		ctx,
		`SELECT id FROM child WHERE family_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		familyID,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO child (id, family_id, child_name, date_of_birth, gender, medical_record, extracted_from_chat, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			uuid.NewString(), familyID, name, dob, gender, notes, now, now,
		); err != nil {
			return fmt.Errorf("%w: insert profile: %w", chat.ErrStore, err)
		}
	case err != nil:
		return fmt.Errorf("%w: find profile: %w", chat.ErrStore, err)
	default:
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE child
			 SET child_name = COALESCE(?, child_name),
			     date_of_birth = COALESCE(?, date_of_birth),
			     gender = COALESCE(?, gender),
			     medical_record = COALESCE(?, medical_record),
			     updated_at = ?
			 WHERE id = ?`,
			name, dob, gender, notes, now, id,
		); err != nil {
			return fmt.Errorf("%w: update profile: %w", chat.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit upsert: %w", chat.ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) ListRecommendable(ctx context.Context) ([]chat.Doctor, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT first_name, last_name, COALESCE(specialty, ''), COALESCE(location, '')
		 FROM doctor
		 WHERE verified = 1
		 ORDER BY last_name ASC, first_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query doctors: %w", chat.ErrStore, err)
	}
	defer rows.Close()

	doctors := make([]chat.Doctor, 0)
	for rows.Next() {
		var firstName, lastName, specialty, location string
		if err := rows.Scan(&firstName, &lastName, &specialty, &location); err != nil {
			return nil, fmt.Errorf("%w: scan doctor row: %w", chat.ErrStore, err)
		}
		doctors = append(doctors, chat.Doctor{
			Name:      doctorDisplayName(firstName, lastName),
			Specialty: strings.TrimSpace(specialty),
			Location:  strings.TrimSpace(location),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate doctor rows: %w", chat.ErrStore, err)
	}
	return doctors, nil
}

func (s *SQLiteStore) InsertDoctor(ctx context.Context, firstName, lastName, specialty, location string, verified bool) error {
	flag := 0
	if verified {
		flag = 1
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO doctor (id, first_name, last_name, specialty, location, verified, created_at)
		 VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)`,
		uuid.NewString(),
		strings.TrimSpace(firstName),
		strings.TrimSpace(lastName),
		strings.TrimSpace(specialty),
		strings.TrimSpace(location),
		flag,
		s.now().UTC().Format(sqliteTimeLayout),
	); err != nil {
		return fmt.Errorf("%w: insert doctor: %w", chat.ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
