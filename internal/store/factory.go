package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/config"
	"parentdoctor/backend/internal/db"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Options struct {
	DatabaseURL string
	SQLitePath  string
	// DoctorFile, when set, overrides the backend's doctor table.
	DoctorFile string
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		DoctorFile:  cfg.DoctorDirectoryFile,
	}
}

// Stores bundles the collaborators the chat engine persists through.
type Stores struct {
	Profiles chat.ProfileStore
	Doctors  chat.DoctorDirectory
	Backend  string

	closers []func()
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open picks PostgreSQL when a database URL is configured, SQLite when a file
// path is, and in-memory stores otherwise.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	stores := &Stores{}
	switch {
	case strings.TrimSpace(opts.DatabaseURL) != "":
		pool, err := db.Open(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database schema mismatch: %w", err)
		}
		stores.Backend = BackendPostgres
		stores.Profiles = NewPostgresProfileStore(pool)
		stores.Doctors = NewPostgresDoctorDirectory(pool)
		stores.closers = append(stores.closers, pool.Close)
	case strings.TrimSpace(opts.SQLitePath) != "":
		sqlite, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		stores.Backend = BackendSQLite
		stores.Profiles = sqlite
		stores.Doctors = sqlite
		stores.closers = append(stores.closers, func() {
			if err := sqlite.Close(); err != nil {
				log.Printf("sqlite close failed err=%v", err)
			}
		})
	default:
		stores.Backend = BackendMemory
		stores.Profiles = NewMemoryProfileStore()
		stores.Doctors = NewStaticDoctorDirectory()
	}

	if file := strings.TrimSpace(opts.DoctorFile); file != "" {
		stores.Doctors = NewYAMLDoctorDirectory(file)
	}
	return stores, nil
}

func (s *Stores) Close() {
	for idx := len(s.closers) - 1; idx >= 0; idx-- {
		s.closers[idx]()
	}
	s.closers = nil
}

// Ping checks the profile backend. In-memory stores are always healthy.
func (s *Stores) Ping(ctx context.Context) error {
	if pinger, ok := s.Profiles.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
