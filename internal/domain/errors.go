package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidTitle     = errors.New("invalid title")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidWIPLimit  = errors.New("invalid wip limit")
	ErrInvalidBucketKey = errors.New("invalid bucket key")
	ErrInvalidBoardKind = errors.New("invalid board kind")
	ErrInvalidPlanRange = errors.New("invalid plan range")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidOrderKey  = errors.New("invalid order key")
	ErrInvalidPriority  = errors.New("invalid priority")
)
