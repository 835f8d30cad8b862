package fake

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/samplauncher/internal/storage"
)

func TestGenerateData(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "samp.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	GenerateData(store, 20)

	servers, err := store.GetServers()
	require.NoError(t, err)
	require.NotEmpty(t, servers)
	assert.LessOrEqual(t, len(servers), 20)

	for _, s := range servers {
		assert.NotEmpty(t, s.Hostname)
		assert.NotEmpty(t, s.CountryCode)
		assert.LessOrEqual(t, s.PlayersOnline, s.MaxPlayers)
	}
}
