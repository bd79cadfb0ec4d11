package user

import "errors"

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrInvalidConfirmation = errors.New("email or confirmation token is incorrect")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountNotConfirmed = errors.New("please confirm your email address")
	ErrValidation          = errors.New("validation failed")
)
