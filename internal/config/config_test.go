package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load(NewViper(), "")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.GoogleAPIKey)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.GeminiBaseURL)
	assert.Equal(t, "gemini-2.5-flash", cfg.ExtractModel)
	assert.Equal(t, "gemini-1.5-flash", cfg.CoachModel)
	assert.Equal(t, "gemini-1.5-flash", cfg.DecomposeModel)
	assert.True(t, cfg.MaskPII)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "1.0.0", cfg.AppVersion)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "10000")
	t.Setenv("EXTRACT_MODEL", "gemini-2.0-flash")
	t.Setenv("MASK_PII", "false")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:9999/")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, ":10000", cfg.HTTPAddr)
	assert.Equal(t, "gemini-2.0-flash", cfg.ExtractModel)
	assert.False(t, cfg.MaskPII)
	assert.Equal(t, "http://localhost:9999", cfg.GeminiBaseURL)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("HTTP_ADDR", "")

	path := filepath.Join(t.TempDir(), "viraflow.yaml")
	content := `
google_api_key: from-file
http_addr: ":9090"
coach_model: gemini-pro
log_format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GoogleAPIKey)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "gemini-pro", cfg.CoachModel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestMergeDotEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("COACH_MODEL", "")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_API_KEY=dotenv-key\nCOACH_MODEL=gemini-x\n"), 0o600))

	v := NewViper()
	require.NoError(t, MergeDotEnv(v, path))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.GoogleAPIKey)
	assert.Equal(t, "gemini-x", cfg.CoachModel)
}

func TestMergeDotEnv_Missing(t *testing.T) {
	require.NoError(t, MergeDotEnv(NewViper(), filepath.Join(t.TempDir(), ".env")))
	require.NoError(t, MergeDotEnv(NewViper(), ""))
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
