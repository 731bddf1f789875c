package ledger

import (
	"errors"
	"fmt"
)

var ErrAccountNotFound = errors.New("account not found")

// FetchError wraps any failure to read an account's confirmed sequence
// number from the node.
type FetchError struct {
	Address string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch confirmed sequence for %s: %v", e.Address, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
