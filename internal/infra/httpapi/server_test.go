package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/execution"
	"frac_ledger/internal/infra/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("io error")
}
func (brokenStore) Put(context.Context, string, []byte) error { return nil }

func seededServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	c := execution.NewContract(nil)

	ops := []execution.Op{
		{Type: execution.OpTypeTx, Seq: 1, Ts: 1700000000000, Initiator: "A", Dispatch: &domain.Dispatch{
			Type: domain.CmdCreateAsset,
			Args: domain.Args{AssetID: "tc:X", TotalShares: domain.IntQuantity(10000)},
		}},
		{Type: execution.OpTypeTx, Seq: 2, Ts: 1700000000001, Initiator: "A", Dispatch: &domain.Dispatch{
			Type: domain.CmdTransferShares,
			Args: domain.Args{AssetID: "tc:X", To: "B", Shares: domain.IntQuantity(4000)},
		}},
	}
	for _, op := range ops {
		_, err := c.Execute(ctx, op, store)
		require.NoError(t, err)
	}

	return NewServer(store, c, func() uint64 { return 3 })
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_GetAsset(t *testing.T) {
	h := seededServer(t).Handler()

	rec := get(t, h, "/assets/tc:X")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"asset":{"assetId":"tc:X","totalShares":10000,"createdAt":1700000000000}}`, rec.Body.String())

	rec = get(t, h, "/assets/tc:Y")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"asset":null}`, rec.Body.String())
}

func TestServer_GetHolders(t *testing.T) {
	h := seededServer(t).Handler()

	rec := get(t, h, "/assets/tc:X/holders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holders":{"A":6000,"B":4000}}`, rec.Body.String())

	rec = get(t, h, "/assets/tc:Y/holders")
	assert.JSONEq(t, `{"holders":{}}`, rec.Body.String())
}

func TestServer_BlankAssetID(t *testing.T) {
	rec := get(t, seededServer(t).Handler(), "/assets/%20/holders")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"ASSET_ID_REQUIRED"}`, rec.Body.String())
}

func TestServer_StorageFailure(t *testing.T) {
	rec := get(t, NewServer(brokenStore{}, nil, nil).Handler(), "/assets/tc:X")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"INTERNAL"}`, rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	rec := get(t, seededServer(t).Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"nextSeq":3}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	rec := get(t, seededServer(t).Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"readsServed"`)
}

func TestServer_NoWriteRoutes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/assets/tc:X", nil)
	rec := httptest.NewRecorder()
	seededServer(t).Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_EscapedAssetIDs(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := execution.NewContract(nil)
	for i, id := range []string{"tc:50%", "a/b"} {
		_, err := c.Execute(ctx, execution.Op{Type: execution.OpTypeTx, Seq: uint64(i + 1), Initiator: "A", Dispatch: &domain.Dispatch{
			Type: domain.CmdCreateAsset,
			Args: domain.Args{AssetID: id, TotalShares: domain.IntQuantity(7)},
		}}, store)
		require.NoError(t, err)
	}
	h := NewServer(store, c, nil).Handler()

	rec := get(t, h, "/assets/tc:50%25/holders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holders":{"A":7}}`, rec.Body.String())

	rec = get(t, h, "/assets/a%2Fb/holders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holders":{"A":7}}`, rec.Body.String())

	// Decoded once only: this names the literal id "a%2Fb".
	rec = get(t, h, "/assets/a%252Fb/holders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holders":{}}`, rec.Body.String())
}
