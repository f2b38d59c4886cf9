package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/config"
	"stockledger/internal/core/event"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/pkg/logger"
)

func TestNewMemory(t *testing.T) {
	cfg := config.Config{
		Env:         "test",
		Storage:     config.StorageConfig{Driver: config.DriverMemory},
		Idempotency: config.IdempotencyConfig{Enabled: true, TTL: time.Hour},
		RateLimit:   "100-S",
	}
	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	assert.Nil(t, a.Pool)

	router, err := a.Router()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	v, err := a.Variants.Create(context.Background(), variant.CreateInput{SKU: "SKU-1", Name: "Hammer"})
	require.NoError(t, err)
	msgs := a.Store.Outbox().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, event.VariantCreated, msgs[0].EventType)
	assert.Equal(t, v.ID, msgs[0].AggregateID)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}, logger.Nop())
	require.Error(t, err)
}
