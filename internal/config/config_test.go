package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tokenomy")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
}

func TestLoadAPIFromEnvDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("TOKENOMY_API_ADDR", "")
	t.Setenv("TOKENOMY_SNAPSHOT_EVERY", "")
	t.Setenv("TOKENOMY_POT_DRAW_HOUR", "")

	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, time.Hour, cfg.SnapshotEvery)
	require.Equal(t, 20, cfg.PotDrawHourUTC)
	require.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
}

func TestLoadAPIFromEnvPortOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9191")

	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	require.Equal(t, ":9191", cfg.Addr)
}

func TestLoadAPIFromEnvMissingDatabase(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := LoadAPIFromEnv()
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadAPIFromEnvBadDrawHour(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKENOMY_POT_DRAW_HOUR", "24")

	_, err := LoadAPIFromEnv()
	require.ErrorContains(t, err, "TOKENOMY_POT_DRAW_HOUR")
}

func TestLoadAPIFromEnvCustomSchedule(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKENOMY_SNAPSHOT_EVERY", "15m")
	t.Setenv("TOKENOMY_POT_DRAW_HOUR", "6")

	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.SnapshotEvery)
	require.Equal(t, 6, cfg.PotDrawHourUTC)
}

func TestLoadCLIFromEnv(t *testing.T) {
	t.Setenv("TOK_API_BASE_URL", "https://api.tokenomy.dev/")
	cfg := LoadCLIFromEnv()
	require.Equal(t, "https://api.tokenomy.dev", cfg.APIBaseURL)

	t.Setenv("TOK_API_BASE_URL", "")
	cfg = LoadCLIFromEnv()
	require.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
}
