package reporter

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TEENet-io/onebtc-go/bridge"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/metrics"
	"github.com/TEENet-io/onebtc-go/relay"
	"github.com/TEENet-io/onebtc-go/vault"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	br     *bridge.Bridge
	relay  *relay.MemoryRelay
	height uint32
}

func newTestServer(t *testing.T) (*testServer, func()) {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	mr := relay.NewMemoryRelay()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	br, err := bridge.New(db, mr, clock, bridge.RegtestConfig())
	require.NoError(t, err)

	h := NewHttpReporter("127.0.0.1", "0", br, metrics.NewMetrics())
	return &testServer{router: h.SetupRouter(), br: br, relay: mr, height: 100}, func() {
		br.Close()
		db.Close()
	}
}

// call performs a request and decodes the "data" field into out when the answer is 2xx.
func (s *testServer) call(t *testing.T, method, route string, caller *ethcommon.Address, body, out any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, route, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(HeaderCaller, caller.Hex())
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if out != nil && w.Code/100 == 2 {
		envelope := struct {
			Data any `json:"data"`
		}{Data: out}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w
}

func reason(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Reason
}

func (s *testServer) registerVault(t *testing.T, id ethcommon.Address) *VaultView {
	_, pub := vault.RandVaultKey()
	var v VaultView
	w := s.call(t, http.MethodPost, ROUTE_VAULTS, &id, &RegisterVaultBody{
		PublicKey:  hex.EncodeToString(pub),
		Collateral: 10e8,
	}, &v)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return &v
}

func TestHello(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := s.call(t, http.MethodGet, ROUTE_HELLO, nil, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"world"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestCallerRequired(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := s.call(t, http.MethodPost, ROUTE_VAULTS, nil, &RegisterVaultBody{PublicKey: "00", Collateral: 1}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", reason(t, w))
}

func TestVaultRoutes(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	id := common.RandEthAddress()
	v := s.registerVault(t, id)
	assert.Equal(t, id.Hex(), v.ID)
	assert.Equal(t, uint64(10e8), v.Collateral)

	w := s.call(t, http.MethodPost, ROUTE_VAULTS, &id, &RegisterVaultBody{PublicKey: v.PublicKey, Collateral: 10e8}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DuplicateVault", reason(t, w))

	w = s.call(t, http.MethodPost, ROUTE_VAULTS+"/"+id.Hex()+"/collateral/lock", &id, &AmountBody{Amount: 5e8}, v)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, uint64(15e8), v.Collateral)

	other := common.RandEthAddress()
	w = s.call(t, http.MethodPost, ROUTE_VAULTS+"/"+id.Hex()+"/collateral/withdraw", &other, &AmountBody{Amount: 1}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.call(t, http.MethodPost, ROUTE_VAULTS+"/"+id.Hex()+"/collateral/withdraw", &id, &AmountBody{Amount: 16e8}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InsufficientCollateral", reason(t, w))

	var list []*VaultView
	w = s.call(t, http.MethodGet, ROUTE_VAULTS, nil, nil, &list)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, list, 1)
	assert.Equal(t, id.Hex(), list[0].ID)

	w = s.call(t, http.MethodGet, ROUTE_VAULTS+"/"+common.RandEthAddress().Hex(), nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "VaultNotFound", reason(t, w))

	w = s.call(t, http.MethodGet, ROUTE_VAULTS+"/not-an-address", nil, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueRoutes(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	vaultID := common.RandEthAddress()
	s.registerVault(t, vaultID)
	requester := common.RandEthAddress()

	var is IssueView
	w := s.call(t, http.MethodPost, ROUTE_ISSUES, &requester, &RequestIssueBody{Amount: 1e8, VaultID: vaultID.Hex()}, &is)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending", is.Status)
	assert.Equal(t, is.Requested, is.Amount+is.Fee)

	id, err := common.ParseHash(is.ID)
	require.NoError(t, err)
	s.height++
	sub, err := bridge.MinePayment(s.relay, s.br.Config().Params, is.DepositAddress, is.Requested, id, s.height)
	require.NoError(t, err)

	other := common.RandEthAddress()
	w = s.call(t, http.MethodPost, ROUTE_ISSUES+"/"+is.ID+"/execute", &other, NewSubmissionBody(sub), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "InvalidExecutor", reason(t, w))

	w = s.call(t, http.MethodPost, ROUTE_ISSUES+"/"+is.ID+"/execute", &requester, NewSubmissionBody(sub), &is)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", is.Status)
	assert.Equal(t, is.Requested, is.Paid)
	assert.NotEmpty(t, is.BtcTxID)

	w = s.call(t, http.MethodPost, ROUTE_ISSUES+"/"+is.ID+"/execute", &requester, NewSubmissionBody(sub), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var got IssueView
	w = s.call(t, http.MethodGet, ROUTE_ISSUES+"/"+is.ID, nil, nil, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, is, got)

	var list []*IssueView
	w = s.call(t, http.MethodGet, ROUTE_ISSUES+"?requester="+requester.Hex(), nil, nil, &list)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list, 1)

	bal := map[string]uint64{}
	w = s.call(t, http.MethodGet, ROUTE_BALANCES+"/"+requester.Hex(), nil, nil, &bal)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, is.Amount, bal["onebtc"])

	w = s.call(t, http.MethodGet, ROUTE_ISSUES+"/"+ethcommon.Hash(common.RandBytes32()).Hex(), nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedeemRoutes(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	vaultID := common.RandEthAddress()
	s.registerVault(t, vaultID)
	requester := common.RandEthAddress()

	var is IssueView
	w := s.call(t, http.MethodPost, ROUTE_ISSUES, &requester, &RequestIssueBody{Amount: 3e8, VaultID: vaultID.Hex()}, &is)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, err := common.ParseHash(is.ID)
	require.NoError(t, err)
	s.height++
	sub, err := bridge.MinePayment(s.relay, s.br.Config().Params, is.DepositAddress, is.Requested, id, s.height)
	require.NoError(t, err)
	w = s.call(t, http.MethodPost, ROUTE_ISSUES+"/"+is.ID+"/execute", &requester, NewSubmissionBody(sub), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.call(t, http.MethodPost, ROUTE_REDEEMS, &requester, &RequestRedeemBody{Amount: 1e8, BtcAddress: "nope", VaultID: vaultID.Hex()}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidBtcAddress", reason(t, w))

	payout := is.DepositAddress
	var rd RedeemView
	w = s.call(t, http.MethodPost, ROUTE_REDEEMS, &requester, &RequestRedeemBody{Amount: 1e8, BtcAddress: payout, VaultID: vaultID.Hex()}, &rd)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending", rd.Status)
	assert.True(t, rd.Deadline.After(rd.CreatedAt))

	w = s.call(t, http.MethodPost, ROUTE_REDEEMS+"/"+rd.ID+"/cancel", &requester, nil, nil)
	assert.Equal(t, http.StatusTooEarly, w.Code)
	assert.Equal(t, "TimeNotExpired", reason(t, w))

	rid, err := common.ParseHash(rd.ID)
	require.NoError(t, err)
	s.height++
	sub, err = bridge.MinePayment(s.relay, s.br.Config().Params, payout, rd.Amount-1, rid, s.height)
	require.NoError(t, err)
	w = s.call(t, http.MethodPost, ROUTE_REDEEMS+"/"+rd.ID+"/execute", &vaultID, NewSubmissionBody(sub), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Underpaid", reason(t, w))

	s.height++
	sub, err = bridge.MinePayment(s.relay, s.br.Config().Params, payout, rd.Amount, rid, s.height)
	require.NoError(t, err)
	w = s.call(t, http.MethodPost, ROUTE_REDEEMS+"/"+rd.ID+"/execute", &vaultID, NewSubmissionBody(sub), &rd)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", rd.Status)

	var got RedeemView
	w = s.call(t, http.MethodGet, ROUTE_REDEEMS+"/"+rd.ID, nil, nil, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rd.Status, got.Status)

	var records []map[string]any
	w = s.call(t, http.MethodGet, ROUTE_EVENTS+"?after=0&limit=100", nil, nil, &records)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, records)

	w = s.call(t, http.MethodGet, ROUTE_EVENTS+"?limit=0", nil, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferRoute(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	from := common.RandEthAddress()
	w := s.call(t, http.MethodPost, ROUTE_TRANSFERS, &from, &TransferBody{To: common.RandEthAddress().Hex(), Amount: 1}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InsufficientBalance", reason(t, w))

	w = s.call(t, http.MethodPost, ROUTE_TRANSFERS, &from, &TransferBody{To: "bad", Amount: 1}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	w := s.call(t, http.MethodGet, ROUTE_METRICS, nil, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
