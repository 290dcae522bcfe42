package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/config"
)

func TestOpenMemory(t *testing.T) {
	stores, err := Open(context.Background(), config.Config{StoreBackend: config.BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, stores.Listings)
	assert.NotNil(t, stores.Reviews)
	assert.Nil(t, stores.Ping)
	assert.NoError(t, stores.Close())
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), config.Config{StoreBackend: "sqlite"}, zap.NewNop())
	assert.Error(t, err)
}
