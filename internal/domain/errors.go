package domain

import "errors"

// ErrIndexOutOfRange is returned when a row index does not address a record in the list.
var ErrIndexOutOfRange = errors.New("index out of range")
