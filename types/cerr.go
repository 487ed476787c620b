// Package types
package types

import (
	"errors"
)

var ErrNotFound = errors.New("record not found")
var ErrRecordExist = errors.New("record exist")
var ErrListenerNotFound = errors.New("listener not found")
