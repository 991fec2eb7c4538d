package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MAX_SESSIONS", "3")
	t.Setenv("SALT_ROUNDS", "10")
	t.Setenv("ACCESS_TOKEN_EXPIRES_IN_S", "900")
	t.Setenv("REFRESH_TOKEN_EXPIRES_IN_S", "604800")
	t.Setenv("ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "r-secret")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxSessions)
	require.Equal(t, 10, cfg.SaltRounds)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL())
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	require.Equal(t, ":4000", cfg.HTTPAddr)
	require.Equal(t, ":8443", cfg.GRPCAddr)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, int32(10), cfg.DBMaxConns)
	require.Equal(t, "authcore", cfg.MongoDBName)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.False(t, cfg.TLSEnabled())
	require.False(t, cfg.Development())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	for _, k := range []string{"MAX_SESSIONS", "SALT_ROUNDS", "ACCESS_TOKEN_EXPIRES_IN_S",
		"REFRESH_TOKEN_EXPIRES_IN_S", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"} {
		t.Setenv(k, "")
	}

	_, err := Load("")
	require.Error(t, err)
	for _, k := range []string{"MAX_SESSIONS", "SALT_ROUNDS", "ACCESS_TOKEN_EXPIRES_IN_S",
		"REFRESH_TOKEN_EXPIRES_IN_S", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"} {
		require.ErrorContains(t, err, k)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"salt too low":     {"SALT_ROUNDS", "3"},
		"salt too high":    {"SALT_ROUNDS", "32"},
		"zero sessions":    {"MAX_SESSIONS", "0"},
		"negative ttl":     {"ACCESS_TOKEN_EXPIRES_IN_S", "-1"},
		"unknown driver":   {"STORE_DRIVER", "sqlite"},
		"half tls":         {"TLS_CERT", "/tmp/cert.pem"},
		"postgres w/o dsn": {"STORE_DRIVER", "postgres"},
		"mongo w/o uri":    {"STORE_DRIVER", "mongo"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv("MONGO_URI", "")
			t.Setenv(kv[0], kv[1])
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoad_MemoryRejectedInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	_, err := Load("")
	require.ErrorContains(t, err, "STORE_DRIVER=memory")
}

func TestLoad_EnvFileAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "MAX_SESSIONS=7\nSALT_ROUNDS=12\nACCESS_TOKEN_EXPIRES_IN_S=60\n" +
		"REFRESH_TOKEN_EXPIRES_IN_S=120\nACCESS_TOKEN_SECRET=file-a\nREFRESH_TOKEN_SECRET=file-r\n" +
		"STORE_DRIVER=memory\nHTTP_ADDR=:5000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	for _, k := range []string{"MAX_SESSIONS", "SALT_ROUNDS", "ACCESS_TOKEN_EXPIRES_IN_S",
		"REFRESH_TOKEN_EXPIRES_IN_S", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET", "STORE_DRIVER", "HTTP_ADDR"} {
		unsetForTest(t, k)
	}
	t.Setenv("HTTP_ADDR", ":6000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxSessions)
	require.Equal(t, "file-a", cfg.AccessTokenSecret)
	require.Equal(t, time.Minute, cfg.AccessTTL())
	require.Equal(t, ":6000", cfg.HTTPAddr)
}

// unsetForTest removes k from the environment and restores it after the test.
func unsetForTest(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	require.NoError(t, os.Unsetenv(k))
}
