package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPingTimeout = 5 * time.Second

// Query keys libpq and pgx understand. Anything else (ORM-specific keys such
// as schema or connection_limit) is dropped before parsing.
var supportedPGQueryKeys = map[string]struct{}{
	"application_name":         {},
	"channel_binding":          {},
	"client_encoding":          {},
	"connect_timeout":          {},
	"dbname":                   {},
	"default_query_exec_mode":  {},
	"gssencmode":               {},
	"host":                     {},
	"keepalives":               {},
	"keepalives_count":         {},
	"keepalives_idle":          {},
	"keepalives_interval":      {},
	"krbsrvname":               {},
	"options":                  {},
	"passfile":                 {},
	"password":                 {},
	"pool_health_check_period": {},
	"pool_max_conn_idle_time":  {},
	"pool_max_conn_lifetime":   {},
	"pool_max_conns":           {},
	"pool_min_conns":           {},
	"port":                     {},
	"service":                  {},
	"sslcert":                  {},
	"sslcrl":                   {},
	"sslkey":                   {},
	"sslmode":                  {},
	"sslpassword":              {},
	"sslrootcert":              {},
	"statement_cache_capacity": {},
	"target_session_attrs":     {},
	"user":                     {},
}

func Connect(ctx context.Context, rawURL string) (*pgxpool.Pool, error) {
	normalized := normalizeDatabaseURL(rawURL)
	cfg, err := pgxpool.ParseConfig(normalized)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Open connects and verifies the server answers before returning the pool.
func Open(ctx context.Context, rawURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	pool, err := Connect(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("database connect failed: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// WithSimpleProtocol switches pgx to the simple query protocol, which
// poolers in transaction mode require.
func WithSimpleProtocol(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	queries := parsed.Query()
	queries.Set("default_query_exec_mode", "simple_protocol")
	parsed.RawQuery = queries.Encode()
	return parsed.String()
}

func normalizeDatabaseURL(rawURL string) string {
	normalized := strings.TrimSpace(rawURL)
	for _, prefix := range []string{"prisma+postgres://", "postgresql+psycopg://", "postgresql://"} {
		if strings.HasPrefix(normalized, prefix) {
			normalized = "postgres://" + strings.TrimPrefix(normalized, prefix)
			break
		}
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	if parsed.Scheme != "postgres" {
		return normalized
	}

	queries := parsed.Query()
	filtered := make(url.Values)
	for key, values := range queries {
		if _, ok := supportedPGQueryKeys[key]; ok {
			for _, v := range values {
				filtered.Add(key, v)
			}
		}
	}
	parsed.RawQuery = filtered.Encode()
	return parsed.String()
}
