package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parentdoctor/backend/internal/chat"
)

// PostgresProfileStore keeps child profiles in the child table. Reads and
// writes target the most recently created row of a family.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

func (s *PostgresProfileStore) GetProfile(ctx context.Context, familyID string) (*chat.ChildProfile, error) {
	var (
		name   *string
		dob    *time.Time
		gender *string
		notes  *string
	)
	err := s.pool.QueryRow(
		ctx,
		`SELECT child_name, date_of_birth, gender, medical_record
		 FROM child
		 WHERE family_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		familyID,
	).Scan(&name, &dob, &gender, &notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %w", chat.ErrStore, err)
	}
	profile := profileFromColumns(derefString(name), dob, derefString(gender), derefString(notes))
	return &profile, nil
}

// UpsertProfile merges with COALESCE per column inside one transaction. The
// target row is locked so concurrent writers for a family cannot interleave.
func (s *PostgresProfileStore) UpsertProfile(ctx context.Context, familyID string, profile chat.ChildProfile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin upsert: %w", chat.ErrStore, err)
	}
	defer tx.Rollback(ctx)

	name, dob, gender, notes := profileColumns(profile)

	var id string
	err = tx.QueryRow(
		ctx,
		`SELECT id::text
		 FROM child
		 WHERE family_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1
		 FOR UPDATE`,
		familyID,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO child (id, family_id, child_name, date_of_birth, gender, medical_record, extracted_from_chat, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())`,
			uuid.NewString(),
			familyID,
			name,
			dob,
			gender,
			notes,
		); err != nil {
			return fmt.Errorf("%w: insert profile: %w", chat.ErrStore, err)
		}
	case err != nil:
		return fmt.Errorf("%w: lock profile: %w", chat.ErrStore, err)
	default:
		if _, err := tx.Exec(
			ctx,
			`UPDATE child
			 SET child_name = COALESCE($1, child_name),
			     date_of_birth = COALESCE($2, date_of_birth),
			     gender = COALESCE($3, gender),
			     medical_record = COALESCE($4, medical_record),
			     updated_at = NOW()
			 WHERE id = $5`,
			name,
			dob,
			gender,
			notes,
			id,
		); err != nil {
			return fmt.Errorf("%w: update profile: %w", chat.ErrStore, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit upsert: %w", chat.ErrStore, err)
	}
	return nil
}

// PostgresDoctorDirectory lists verified doctors from the doctor table.
type PostgresDoctorDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDoctorDirectory(pool *pgxpool.Pool) *PostgresDoctorDirectory {
	return &PostgresDoctorDirectory{pool: pool}
}

func (d *PostgresDoctorDirectory) ListRecommendable(ctx context.Context) ([]chat.Doctor, error) {
	rows, err := d.pool.Query(
		ctx,
		`SELECT first_name, last_name, COALESCE(specialty, ''), COALESCE(location, '')
		 FROM doctor
		 WHERE verified = TRUE
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

// InsertDoctor adds a doctor row. It backs local seeding and tests.
func (d *PostgresDoctorDirectory) InsertDoctor(ctx context.Context, firstName, lastName, specialty, location string, verified bool) error {
	if _, err := d.pool.Exec(
		ctx,
		`INSERT INTO doctor (id, first_name, last_name, specialty, location, verified)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		uuid.NewString(),
		strings.TrimSpace(firstName),
		strings.TrimSpace(lastName),
		strings.TrimSpace(specialty),
		strings.TrimSpace(location),
		verified,
	); err != nil {
		return fmt.Errorf("%w: insert doctor: %w", chat.ErrStore, err)
	}
	return nil
}

func (s *PostgresProfileStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
