// Package store persists fights, derived metric rows, ingest provenance,
// and the last-seen rate budget in a libsql database. The ingest CLI writes
// to it and the HTTP server reads from it, so every receiver tolerates a
// nil store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/raidlens/raidlens/internal/config"
)

const driverLibsql = "libsql"

// Store holds the open database handle.
type Store struct {
	DB     *sql.DB
	driver string
}

// Open connects to the configured database and verifies it with a ping.
// Only the libsql driver is supported; an empty driver means libsql.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	dsn, err := buildLibsqlDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	return &Store{DB: db, driver: driver}, nil
}

// Close releases the database handle. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver reports which driver the store was opened with.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// buildLibsqlDSN turns the store config into a libsql DSN. A remote URL
// wins over a local path; a bare path is wrapped in a file: scheme and its
// parent directory created so first runs work out of the box.
func buildLibsqlDSN(cfg config.StoreConfig) (string, error) {
	if remote := strings.TrimSpace(cfg.URL); remote != "" {
		return attachAuthToken(remote, cfg.AuthToken)
	}

	target := strings.TrimSpace(cfg.Path)
	switch {
	case target == "":
		return "", errors.New("store path or url is required")
	case target == ":memory:":
		return target, nil
	case strings.HasPrefix(target, "libsql:"):
		// Remote DSN given via path; token handling is the caller's problem.
		return target, nil
	case strings.HasPrefix(target, "file:"):
		local, err := filePathFromDSN(target)
		if err != nil {
			return "", err
		}
		if err := ensureParentDir(local); err != nil {
			return "", err
		}
		return target, nil
	default:
		if err := ensureParentDir(target); err != nil {
			return "", err
		}
		return "file:" + filepath.Clean(target), nil
	}
}

// attachAuthToken appends the configured auth token to a remote DSN unless
// the DSN already carries one.
func attachAuthToken(dsn, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}

	query := parsed.Query()
	if query.Get("authToken") != "" {
		return dsn, nil
	}
	query.Set("authToken", token)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// filePathFromDSN recovers the filesystem path from a file: DSN so the
// parent directory can be created before libsql opens it.
func filePathFromDSN(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}

	local := parsed.Path
	if local == "" {
		local = parsed.Opaque
	}
	return strings.TrimPrefix(local, "//"), nil
}

func ensureParentDir(path string) error {
	if strings.TrimSpace(path) == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}

	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
