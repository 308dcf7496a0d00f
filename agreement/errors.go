package agreement

import "errors"

// Rejections. Every failed operation leaves state untouched and reports one
// of these, possibly wrapped with detail.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidPublicKey       = errors.New("invalid public key")
	ErrInvalidBtcAddress      = errors.New("invalid btc address")
	ErrVaultNotFound          = errors.New("vault not found")
	ErrDuplicateVault         = errors.New("vault already registered")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrInsufficientIssued     = errors.New("insufficient issued tokens")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrRequestNotFound        = errors.New("request not found")
	ErrAlreadyCompleted       = errors.New("request is completed")
	ErrInvalidExecutor        = errors.New("invalid executor")
	ErrTimeNotExpired         = errors.New("time not expired")
	ErrInvalidProof           = errors.New("invalid proof")
	ErrUnknownBlock           = errors.New("unknown block")
	ErrMissingTag             = errors.New("missing request tag")
	ErrAddressMismatch        = errors.New("no output pays the expected address")
	ErrUnderpaid              = errors.New("underpaid")
	ErrPaymentReused          = errors.New("btc tx already settled a request")
)

// ErrCapacityUnderflow means a capacity counter would go negative. It is an
// internal fault, not a rejection.
var ErrCapacityUnderflow = errors.New("capacity counter underflow")

var reasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidPublicKey, "InvalidPublicKey"},
	{ErrInvalidBtcAddress, "InvalidBtcAddress"},
	{ErrVaultNotFound, "VaultNotFound"},
	{ErrDuplicateVault, "DuplicateVault"},
	{ErrInsufficientCollateral, "InsufficientCollateral"},
	{ErrInsufficientIssued, "InsufficientIssued"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrRequestNotFound, "RequestNotFound"},
	{ErrAlreadyCompleted, "AlreadyCompleted"},
	{ErrInvalidExecutor, "InvalidExecutor"},
	{ErrTimeNotExpired, "TimeNotExpired"},
	{ErrInvalidProof, "InvalidProof"},
	{ErrUnknownBlock, "UnknownBlock"},
	{ErrMissingTag, "MissingTag"},
	{ErrAddressMismatch, "AddressMismatch"},
	{ErrUnderpaid, "Underpaid"},
	{ErrPaymentReused, "PaymentReused"},
}

// Reason returns the machine readable reason of a rejection, or "Internal"
// for errors that are not rejections.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "Internal"
}

// IsRejection reports whether err is one of the rejections above.
func IsRejection(err error) bool {
	return Reason(err) != "Internal"
}
