package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fintrack/models"
	"fintrack/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	cfg := &config.Config{StoreBackend: config.BackendFile, DBFile: path, DBWatch: true}

	st, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.InsertUser(context.Background(), &models.User{Username: "amy"}))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreBackend: "mongo"}, zerolog.Nop())
	assert.ErrorContains(t, err, `unknown store backend "mongo"`)
}

func TestOpenPostgresWithoutDSN(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendPostgres}, zerolog.Nop())
	assert.Error(t, err)
}
