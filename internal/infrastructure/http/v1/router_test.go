package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/domain/ledger"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/storage/memory"
)

type api struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.NewStore()
	led := ledger.NewService(store.Movements(), store.Variants(), store, store.Outbox())

	router, err := v1.NewRouter(v1.RouterConfig{
		Variants:    variant.NewService(store.Variants(), store),
		Ledger:      led,
		Audits:      inventory.NewService(store.Audits(), store.Variants(), led, store.Sequences(), store, store.Outbox()),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		RateLimit:   "1000-S",
	})
	require.NoError(t, err)
	return &api{t: t, router: router, store: store}
}

func (a *api) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *api) createVariant(sku string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/variants", gin.H{"sku": sku, "name": "Variant " + sku, "categoryId": "tools"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(a.t, w)["id"].(string)
}

func (a *api) postMovement(variantID, typ string, qty int64, cost string) string {
	a.t.Helper()
	body := gin.H{"variantId": variantID, "movementType": typ, "quantity": qty}
	if cost != "" {
		body["unitCost"] = cost
	}
	w := a.do(http.MethodPost, "/api/v1/movements", body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	movementID := decode(a.t, w)["id"].(string)

	w = a.do(http.MethodPost, "/api/v1/movements/"+movementID+"/post", nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return movementID
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMovementLifecycle(t *testing.T) {
	a := newAPI(t)
	variantID := a.createVariant("SKU-1")

	a.postMovement(variantID, "purchase", 10, "5.00")
	second := a.postMovement(variantID, "PURCHASE", 10, "7.00")

	w := a.do(http.MethodGet, "/api/v1/variants/"+variantID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode(t, w)
	assert.EqualValues(t, 20, v["stockQuantity"])
	assert.Equal(t, "6", v["averageCost"])

	w = a.do(http.MethodPost, "/api/v1/movements/"+second+"/unpost", nil, "X-User-ID", "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)
	assert.Equal(t, "reversed", m["status"])
	assert.Equal(t, "alice", m["unpostedBy"])

	w = a.do(http.MethodGet, "/api/v1/variants/"+variantID+"/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["consistent"])

	w = a.do(http.MethodGet, "/api/v1/movements?variantId="+variantID+"&status=posted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalCount"])
}

func TestUnpostErrors(t *testing.T) {
	a := newAPI(t)
	variantID := a.createVariant("SKU-1")
	first := a.postMovement(variantID, "purchase", 10, "5")
	a.postMovement(variantID, "adjustment", -2, "")

	w := a.do(http.MethodPost, "/api/v1/movements/"+first+"/unpost", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REVERSAL_ORDER", decode(t, w)["code"])

	sale := a.postMovement(variantID, "sale", -1, "")
	w = a.do(http.MethodPost, "/api/v1/movements/"+sale+"/unpost", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "IMMUTABLE_MOVEMENT", decode(t, w)["code"])
}

func TestRequestErrors(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed id", http.MethodGet, "/api/v1/movements/not-an-id", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown movement", http.MethodGet, "/api/v1/movements/01890a5d-ac96-774b-bcce-b302099a8057", nil, http.StatusNotFound, "NOT_FOUND"},
		{"missing fields", http.MethodPost, "/api/v1/variants", gin.H{"sku": "X"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown type", http.MethodPost, "/api/v1/movements", gin.H{
			"variantId": "01890a5d-ac96-774b-bcce-b302099a8057", "movementType": "gift", "quantity": 1,
		}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty scope", http.MethodPost, "/api/v1/audits", gin.H{"name": "Q1", "scope": gin.H{"kind": "category"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestIdempotentReplay(t *testing.T) {
	a := newAPI(t)
	body := gin.H{"sku": "SKU-1", "name": "Hammer"}

	first := a.do(http.MethodPost, "/api/v1/variants", body, "X-Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := a.do(http.MethodPost, "/api/v1/variants", body, "X-Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode(t, first)["id"], decode(t, second)["id"])
	assert.Equal(t, 1, a.store.Stats()["variants"])

	// Same key, different body.
	w := a.do(http.MethodPost, "/api/v1/variants", gin.H{"sku": "SKU-2", "name": "Saw"}, "X-Idempotency-Key", "k1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", decode(t, w)["code"])

	// Failed requests replay their error.
	dup := gin.H{"sku": "SKU-1", "name": "Other"}
	w = a.do(http.MethodPost, "/api/v1/variants", dup, "X-Idempotency-Key", "k2")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/api/v1/variants", dup, "X-Idempotency-Key", "k2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
}

func TestAuditFlow(t *testing.T) {
	a := newAPI(t)
	variantID := a.createVariant("SKU-1")
	a.postMovement(variantID, "purchase", 10, "2.50")

	w := a.do(http.MethodPost, "/api/v1/audits", gin.H{"name": "Tools", "scope": gin.H{"kind": "category", "value": "tools"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	audit := decode(t, w)
	auditID := audit["id"].(string)
	assert.Equal(t, "draft", audit["status"])
	assert.EqualValues(t, 1, audit["totalVariants"])

	w = a.do(http.MethodPost, "/api/v1/audits/"+auditID+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/v1/audits/"+auditID+"/blind-items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "theoreticalStock")
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	lineID := items[0].(map[string]any)["id"].(string)

	w = a.do(http.MethodPost, "/api/v1/audits/"+auditID+"/complete", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INCOMPLETE_COUNT", decode(t, w)["code"])

	w = a.do(http.MethodPut, "/api/v1/audits/"+auditID+"/lines/"+lineID+"/count", gin.H{"countedStock": 8}, "X-User-ID", "bob")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/v1/audits/"+auditID+"/progress", nil, "X-User-ID", "bob")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["countedByMe"])

	w = a.do(http.MethodGet, "/api/v1/audits/"+auditID+"/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	line := decode(t, w)["items"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 10, line["theoreticalStock"])

	w = a.do(http.MethodPost, "/api/v1/audits/"+auditID+"/complete", gin.H{"autoPostAdjustments": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = a.do(http.MethodGet, "/api/v1/variants/"+variantID, nil)
	assert.EqualValues(t, 8, decode(t, w)["stockQuantity"])
}
