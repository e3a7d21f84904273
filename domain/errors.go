package domain

import "errors"

var (
	ErrConnectionClosed    = errors.New("connection closed")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrUnrecognizedPayload = errors.New("unrecognized payload")
	ErrDeliveryFailure     = errors.New("delivery failure")
	ErrOversizeMessage     = errors.New("message exceeds size limit")
	ErrUnknownFrame        = errors.New("unknown frame type")
)
