// This is the http front of the bridge.
// State changing routes take the caller identity from the X-Caller header;
// authenticating that header is left to the gateway in front of the server.

package reporter

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/TEENet-io/onebtc-go/bridge"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/metrics"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const (
	ROUTE_HELLO     = "/hello"
	ROUTE_METRICS   = "/metrics"
	ROUTE_VAULTS    = "/vaults"
	ROUTE_ISSUES    = "/issues"
	ROUTE_REDEEMS   = "/redeems"
	ROUTE_BALANCES  = "/balances"
	ROUTE_TRANSFERS = "/transfers"
	ROUTE_EVENTS    = "/events"

	defaultListLimit = 50
	maxListLimit     = 500
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	bridge  *bridge.Bridge
	metrics *metrics.Metrics
}

func NewHttpReporter(serverIP string, serverPort string, br *bridge.Bridge, m *metrics.Metrics) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		bridge:     br,
		metrics:    m,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	router.GET(ROUTE_HELLO, Hello)
	if h.metrics != nil {
		router.GET(ROUTE_METRICS, gin.WrapH(h.metrics.Handler()))
	}

	router.GET(ROUTE_VAULTS, h.ListVaults)
	router.GET(ROUTE_VAULTS+"/:id", h.GetVault)
	router.GET(ROUTE_ISSUES, h.ListIssues)
	router.GET(ROUTE_ISSUES+"/:id", h.GetIssue)
	router.GET(ROUTE_REDEEMS, h.ListRedeems)
	router.GET(ROUTE_REDEEMS+"/:id", h.GetRedeem)
	router.GET(ROUTE_BALANCES+"/:address", h.Balance)
	router.GET(ROUTE_EVENTS, h.Events)

	auth := router.Group("/", requireCaller())
	auth.POST(ROUTE_VAULTS, h.RegisterVault)
	auth.POST(ROUTE_VAULTS+"/:id/collateral/lock", h.LockCollateral)
	auth.POST(ROUTE_VAULTS+"/:id/collateral/withdraw", h.WithdrawCollateral)
	auth.POST(ROUTE_ISSUES, h.RequestIssue)
	auth.POST(ROUTE_ISSUES+"/:id/execute", h.ExecuteIssue)
	auth.POST(ROUTE_ISSUES+"/:id/cancel", h.CancelIssue)
	auth.POST(ROUTE_REDEEMS, h.RequestRedeem)
	auth.POST(ROUTE_REDEEMS+"/:id/execute", h.ExecuteRedeem)
	auth.POST(ROUTE_REDEEMS+"/:id/cancel", h.CancelRedeem)
	auth.POST(ROUTE_TRANSFERS, h.Transfer)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() error {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	return router.Run(address)
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

func caller(c *gin.Context) ethcommon.Address {
	return c.MustGet(keyCaller).(ethcommon.Address)
}

func pathAccount(c *gin.Context, key string) (ethcommon.Address, bool) {
	a, err := common.ParseAccount(c.Param(key))
	if err != nil {
		badRequest(c, err)
		return ethcommon.Address{}, false
	}
	return a, true
}

func pathHash(c *gin.Context) (ethcommon.Hash, bool) {
	id, err := common.ParseHash(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return ethcommon.Hash{}, false
	}
	return id, true
}

func queryLimit(c *gin.Context) (int, bool) {
	s := c.DefaultQuery("limit", strconv.Itoa(defaultListLimit))
	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 || limit > maxListLimit {
		badRequest(c, errors.New("limit must be between 1 and "+strconv.Itoa(maxListLimit)))
		return 0, false
	}
	return limit, true
}

// Vaults

func (h *HttpReporter) RegisterVault(c *gin.Context) {
	var body RegisterVaultBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	pub, err := hex.DecodeString(common.Trim0xPrefix(body.PublicKey))
	if err != nil {
		badRequest(c, err)
		return
	}

	v, err := h.bridge.RegisterVault(c.Request.Context(), caller(c), pub, body.Collateral)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": newVaultView(v, h.bridge.Config().CollateralRatioPercent)})
}

// ownVault makes sure a vault only moves its own collateral.
func ownVault(c *gin.Context) bool {
	id, ok := pathAccount(c, "id")
	if !ok {
		return false
	}
	if id != caller(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "caller is not the vault", "reason": "InvalidExecutor"})
		return false
	}
	return true
}

func (h *HttpReporter) LockCollateral(c *gin.Context) {
	if !ownVault(c) {
		return
	}
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	v, err := h.bridge.LockCollateral(c.Request.Context(), caller(c), body.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newVaultView(v, h.bridge.Config().CollateralRatioPercent)})
}

func (h *HttpReporter) WithdrawCollateral(c *gin.Context) {
	if !ownVault(c) {
		return
	}
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	v, err := h.bridge.WithdrawCollateral(c.Request.Context(), caller(c), body.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newVaultView(v, h.bridge.Config().CollateralRatioPercent)})
}

func (h *HttpReporter) GetVault(c *gin.Context) {
	id, ok := pathAccount(c, "id")
	if !ok {
		return
	}
	v, err := h.bridge.GetVault(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newVaultView(v, h.bridge.Config().CollateralRatioPercent)})
}

func (h *HttpReporter) ListVaults(c *gin.Context) {
	vs, err := h.bridge.ListVaults(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	views := make([]*VaultView, 0, len(vs))
	for _, v := range vs {
		views = append(views, newVaultView(v, h.bridge.Config().CollateralRatioPercent))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// Issue

func (h *HttpReporter) RequestIssue(c *gin.Context) {
	var body RequestIssueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	vaultID, err := common.ParseAccount(body.VaultID)
	if err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.bridge.RequestIssue(c.Request.Context(), caller(c), body.Amount, vaultID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": newIssueView(r)})
}

func (h *HttpReporter) ExecuteIssue(c *gin.Context) {
	id, ok := pathHash(c)
	if !ok {
		return
	}
	var body SubmissionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	sub, err := body.Submission()
	if err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.bridge.ExecuteIssue(c.Request.Context(), caller(c), id, sub)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newIssueView(r)})
}

func (h *HttpReporter) CancelIssue(c *gin.Context) {
	id, ok := pathHash(c)
	if !ok {
		return
	}
	r, err := h.bridge.CancelIssue(c.Request.Context(), caller(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newIssueView(r)})
}

func (h *HttpReporter) GetIssue(c *gin.Context) {
	id, ok := pathHash(c)
	if !ok {
		return
	}
	r, err := h.bridge.GetIssue(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newIssueView(r)})
}

func (h *HttpReporter) ListIssues(c *gin.Context) {
	requester, err := common.ParseAccount(c.Query("requester"))
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	rs, err := h.bridge.ListIssues(c.Request.Context(), requester, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	views := make([]*IssueView, 0, len(rs))
	for _, r := range rs {
		views = append(views, newIssueView(r))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// Redeem

func (h *HttpReporter) RequestRedeem(c *gin.Context) {
	var body RequestRedeemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	vaultID, err := common.ParseAccount(body.VaultID)
	if err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.bridge.RequestRedeem(c.Request.Context(), caller(c), body.Amount, body.BtcAddress, vaultID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": newRedeemView(r)})
}

func (h *HttpReporter) ExecuteRedeem(c *gin.Context) {
	id, ok := pathHash(c)
	if !ok {
		return
	}
	var body SubmissionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	sub, err := body.Submission()
	if err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.bridge.ExecuteRedeem(c.Request.Context(), caller(c), id, sub)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRedeemView(r)})
}

func (h *HttpReporter) CancelRedeem(c *gin.Context) {
	id, ok := pathHash(c)
	if !ok {
		return
	}
	r, err := h.bridge.CancelRedeem(c.Request.Context(), caller(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRedeemView(r)})
}

func (h *HttpReporter) GetRedeem(c *gin.Context) {
	id, ok := pathHash(c)
	if !ok {
		return
	}
	r, err := h.bridge.GetRedeem(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newRedeemView(r)})
}

func (h *HttpReporter) ListRedeems(c *gin.Context) {
	requester, err := common.ParseAccount(c.Query("requester"))
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	rs, err := h.bridge.ListRedeems(c.Request.Context(), requester, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	views := make([]*RedeemView, 0, len(rs))
	for _, r := range rs {
		views = append(views, newRedeemView(r))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// Ledger

func (h *HttpReporter) Balance(c *gin.Context) {
	account, ok := pathAccount(c, "address")
	if !ok {
		return
	}
	bal, err := h.bridge.BalanceOf(c.Request.Context(), account)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bal})
}

func (h *HttpReporter) Transfer(c *gin.Context) {
	var body TransferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	to, err := common.ParseAccount(body.To)
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.bridge.Transfer(c.Request.Context(), caller(c), to, body.Amount); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"from": caller(c).Hex(), "to": to.Hex(), "amount": body.Amount}})
}

func (h *HttpReporter) Events(c *gin.Context) {
	after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	records, err := h.bridge.Events(c.Request.Context(), after, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
