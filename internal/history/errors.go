package history

import "github.com/pkg/errors"

var (
	ErrSessionNotFound = errors.New("history session not found")
	ErrDaysOutOfRange  = errors.New("history days out of range")
)
