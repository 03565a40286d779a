package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrInvalidAction = errors.New("invalid order action")
	ErrInvalidShock  = errors.New("invalid news shock")
	ErrInvalidConfig = errors.New("invalid market configuration")
)
