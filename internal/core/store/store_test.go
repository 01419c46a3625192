package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raidlens/raidlens/internal/config"
)

func TestBuildLibsqlDSN(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StoreConfig
		want string
	}{
		{
			name: "memory",
			cfg:  config.StoreConfig{Path: ":memory:"},
			want: ":memory:",
		},
		{
			name: "plain path gains file scheme",
			cfg:  config.StoreConfig{Path: filepath.Join(dir, "raidlens.db")},
			want: "file:" + filepath.Join(dir, "raidlens.db"),
		},
		{
			name: "file dsn passes through",
			cfg:  config.StoreConfig{Path: "file:" + filepath.Join(dir, "sub", "raidlens.db")},
			want: "file:" + filepath.Join(dir, "sub", "raidlens.db"),
		},
		{
			name: "remote url with auth token",
			cfg:  config.StoreConfig{URL: "libsql://raidlens.turso.io", AuthToken: "tok"},
			want: "libsql://raidlens.turso.io?authToken=tok",
		},
		{
			name: "remote url keeps existing token",
			cfg:  config.StoreConfig{URL: "libsql://raidlens.turso.io?authToken=old", AuthToken: "new"},
			want: "libsql://raidlens.turso.io?authToken=old",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildLibsqlDSN(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBuildLibsqlDSNRequiresTarget(t *testing.T) {
	_, err := buildLibsqlDSN(config.StoreConfig{})
	require.Error(t, err)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Empty(t, s.Driver())
}
