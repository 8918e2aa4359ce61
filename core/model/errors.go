package model

import (
	"errors"
	"math"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrStateConflict   = errors.New("state conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCapacity        = errors.New("insufficient capacity")
	ErrAlreadyExists   = errors.New("already exists")
)

var inf = math.Inf(1)
