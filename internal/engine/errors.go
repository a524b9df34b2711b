package engine

import "errors"

// Validation errors. Raised before any state mutation; the caller can
// retry with corrected input.
var (
	ErrEmptyName         = errors.New("token name must not be empty")
	ErrEmptySymbol       = errors.New("token symbol must not be empty")
	ErrInvalidStartTime  = errors.New("start time must not be in the past")
	ErrInvalidEndTime    = errors.New("end time must be after start time")
	ErrInvalidTierParams = errors.New("invalid tier params")
)

// State errors. The request conflicts with the current lifecycle state of
// the token or offering.
var (
	ErrTokenNotActive          = errors.New("token is not active")
	ErrStoNotActive            = errors.New("offering is not active")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrOfferingExpired         = errors.New("offering window already closed")
	ErrOfferingSoldOut         = errors.New("offering sold out")
	ErrOutsideOfferingWindow   = errors.New("outside offering window")
)

// Investment rejection errors.
var (
	ErrUnauthorized              = errors.New("caller is not the authority")
	ErrNotAccredited             = errors.New("investor is not accredited")
	ErrPaymentMethodNotAccepted  = errors.New("payment method not accepted")
	ErrNoPaymentMethod           = errors.New("no payment method enabled")
	ErrInvestmentOutOfRange      = errors.New("investment amount out of range")
	ErrInsufficientTierInventory = errors.New("insufficient tier inventory")
)
