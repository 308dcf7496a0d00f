package reporter

import (
	"net/http"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/gin-gonic/gin"
)

var statusByReason = map[string]int{
	"InvalidAmount":          http.StatusBadRequest,
	"InvalidPublicKey":       http.StatusBadRequest,
	"InvalidBtcAddress":      http.StatusBadRequest,
	"VaultNotFound":          http.StatusNotFound,
	"RequestNotFound":        http.StatusNotFound,
	"InvalidExecutor":        http.StatusForbidden,
	"DuplicateVault":         http.StatusConflict,
	"AlreadyCompleted":       http.StatusConflict,
	"PaymentReused":          http.StatusConflict,
	"TimeNotExpired":         http.StatusTooEarly,
	"InsufficientCollateral": http.StatusUnprocessableEntity,
	"InsufficientIssued":     http.StatusUnprocessableEntity,
	"InsufficientBalance":    http.StatusUnprocessableEntity,
	"InvalidProof":           http.StatusUnprocessableEntity,
	"UnknownBlock":           http.StatusUnprocessableEntity,
	"MissingTag":             http.StatusUnprocessableEntity,
	"AddressMismatch":        http.StatusUnprocessableEntity,
	"Underpaid":              http.StatusUnprocessableEntity,
}

// abortWithError answers with the status of err's reason and the reason
// itself so clients can tell rejections apart.
func abortWithError(c *gin.Context, err error) {
	reason := agreement.Reason(err)
	status, ok := statusByReason[reason]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "reason": reason})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "BadRequest"})
}
