package reporter

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TEENet-io/onebtc-go/bridge"
	"github.com/TEENet-io/onebtc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reader returns a client of a live server backed by s acting as caller.
func (s *testServer) reader(t *testing.T, srv *httptest.Server, caller ethcommon.Address) *HttpReader {
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	return NewHttpReader(host, port, caller)
}

func TestHttpReaderRoundTrip(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	vaultID := common.RandEthAddress()
	s.registerVault(t, vaultID)
	requester := common.RandEthAddress()
	user := s.reader(t, srv, requester)
	operator := s.reader(t, srv, vaultID)

	hello, err := user.GetHello()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"world"}`, hello)

	v, err := user.GetVault(vaultID.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(10e8), v.Collateral)

	is, err := user.RequestIssue(3e8, vaultID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "pending", is.Status)
	assert.Equal(t, requester.Hex(), is.Requester)

	id, err := common.ParseHash(is.ID)
	require.NoError(t, err)
	s.height++
	sub, err := bridge.MinePayment(s.relay, s.br.Config().Params, is.DepositAddress, is.Requested, id, s.height)
	require.NoError(t, err)

	is, err = user.ExecuteIssue(is.ID, NewSubmissionBody(sub))
	require.NoError(t, err)
	assert.Equal(t, "completed", is.Status)

	got, err := user.GetIssue(is.ID)
	require.NoError(t, err)
	assert.Equal(t, is, got)

	bal, err := user.GetBalance(requester.Hex())
	require.NoError(t, err)
	assert.Equal(t, is.Amount, bal["onebtc"])

	payout := is.DepositAddress
	rd, err := user.RequestRedeem(1e8, payout, vaultID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "pending", rd.Status)

	rid, err := common.ParseHash(rd.ID)
	require.NoError(t, err)
	s.height++
	sub, err = bridge.MinePayment(s.relay, s.br.Config().Params, payout, rd.Amount, rid, s.height)
	require.NoError(t, err)

	rd, err = operator.ExecuteRedeem(rd.ID, NewSubmissionBody(sub))
	require.NoError(t, err)
	assert.Equal(t, "completed", rd.Status)

	gotRd, err := user.GetRedeem(rd.ID)
	require.NoError(t, err)
	assert.Equal(t, rd.Status, gotRd.Status)
}

func TestHttpReaderErrors(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	user := s.reader(t, srv, common.RandEthAddress())

	_, err := user.GetIssue(ethcommon.Hash(common.RandBytes32()).Hex())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "RequestNotFound", apiErr.Reason)
	assert.NotEmpty(t, apiErr.Message)

	_, err = user.RequestIssue(1e8, common.RandEthAddress().Hex())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "VaultNotFound", apiErr.Reason)

	_, err = user.GetBalance("not-an-account")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	srv.Close()
	_, err = user.GetVault(common.RandEthAddress().Hex())
	require.Error(t, err)
	assert.False(t, errors.As(err, &apiErr))
}
