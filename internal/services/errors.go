package services

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrAppointmentNotPayable = errors.New("appointment is not awaiting payment")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrIdempotencyKeyReused  = errors.New("idempotency key already used for another appointment")
	ErrGateway               = errors.New("payment gateway unavailable")
	ErrMalformedEvent        = errors.New("malformed webhook event")
)
