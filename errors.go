package trustwork

import "errors"

var (
	// Store errors.
	ErrNoStore          = errors.New("trustwork: no store configured")
	ErrStoreClosed      = errors.New("trustwork: store closed")
	ErrMigrationFailed  = errors.New("trustwork: migration failed")
	ErrConcurrentUpdate = errors.New("trustwork: concurrent update, retry")

	// Not found errors.
	ErrJobNotFound = errors.New("trustwork: job not found")

	// Validation errors.
	ErrInvalidAmount    = errors.New("trustwork: amount must be positive")
	ErrInvalidDeadline  = errors.New("trustwork: deadline must be in the future")
	ErrSelfDealing      = errors.New("trustwork: client and freelancer must differ")
	ErrInvalidAddress   = errors.New("trustwork: invalid address")
	ErrEmptyDeliverable = errors.New("trustwork: deliverable reference is empty")
	ErrInvalidOutcome   = errors.New("trustwork: invalid dispute outcome")
	ErrMissingField     = errors.New("trustwork: required field missing")
	ErrFieldTooLong     = errors.New("trustwork: field too long")

	// Authorization errors.
	ErrMissingCaller = errors.New("trustwork: no caller identity")
	ErrUnauthorized  = errors.New("trustwork: caller not authorized")

	// State errors.
	ErrInvalidTransition = errors.New("trustwork: invalid state transition")

	// ErrNothingHeld signals a ledger consistency violation. It never
	// occurs under correct sequencing; seeing it means a core bug.
	ErrNothingHeld = errors.New("trustwork: nothing held in escrow")
)

// rejections are the errors a caller can correct. Anything else returned
// by an operation is a fault of the ledger or its store.
var rejections = []error{
	ErrJobNotFound,
	ErrInvalidAmount,
	ErrInvalidDeadline,
	ErrSelfDealing,
	ErrInvalidAddress,
	ErrEmptyDeliverable,
	ErrInvalidOutcome,
	ErrMissingField,
	ErrFieldTooLong,
	ErrMissingCaller,
	ErrUnauthorized,
	ErrInvalidTransition,
}

// Rejected reports whether err refuses the request on the caller's
// grounds: validation, authorization or an illegal transition. Nothing
// was written when Rejected returns true.
func Rejected(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
