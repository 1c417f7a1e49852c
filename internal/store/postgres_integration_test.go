package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/db"
)

func requireIntegration(t *testing.T) *pgxpool.Pool {
	t.Helper()
	raw := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration tests skipped: TEST_DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, db.WithSimpleProtocol(raw))
	if err != nil {
		t.Fatalf("integration test setup failed: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := EnsurePostgresSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return pool
}

func TestPostgresProfileStoreIntegration(t *testing.T) {
	pool := requireIntegration(t)
	familyID := "it-family-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM child WHERE family_id = $1`, familyID)
	})

	exerciseProfileStore(t, NewPostgresProfileStore(pool), familyID)

	var engineRows int
	if err := pool.QueryRow(
		context.Background(),
		`SELECT COUNT(*) FROM child WHERE family_id = $1 AND extracted_from_chat = TRUE`,
		familyID,
	).Scan(&engineRows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if engineRows != 1 {
		t.Fatalf("expected a single engine-created row, got %d", engineRows)
	}
}

func TestPostgresDoctorDirectoryIntegration(t *testing.T) {
	pool := requireIntegration(t)
	ctx := context.Background()
	directory := NewPostgresDoctorDirectory(pool)
	lastName := "It" + strings.ReplaceAll(uuid.NewString(), "-", "")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM doctor WHERE last_name = $1`, lastName)
	})

	if err := directory.InsertDoctor(ctx, "Emily", lastName, "Pediatrics", "Seattle", true); err != nil {
		t.Fatalf("insert doctor: %v", err)
	}
	if err := directory.InsertDoctor(ctx, "Hidden", lastName, "", "", false); err != nil {
		t.Fatalf("insert doctor: %v", err)
	}

	doctors, err := directory.ListRecommendable(ctx)
	if err != nil {
		t.Fatalf("list doctors: %v", err)
	}
	found := make([]chat.Doctor, 0)
	for _, doctor := range doctors {
		if strings.HasSuffix(doctor.Name, lastName) {
			found = append(found, doctor)
		}
	}
	if len(found) != 1 || found[0].Name != "Dr. Emily "+lastName || found[0].Location != "Seattle" {
		t.Fatalf("expected only the verified doctor, got %+v", found)
	}
}
