package symtab

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSymbol is matched by every UnknownSymbolError.
	ErrUnknownSymbol = errors.New("symtab: unknown symbol")
	// ErrUnsupportedPolicy indicates an on_unknown value other than keep_original or fail.
	ErrUnsupportedPolicy = errors.New("symtab: unsupported on_unknown policy")
	// ErrDuplicateKey indicates two table entries normalise to the same key.
	ErrDuplicateKey = errors.New("symtab: duplicate key")
	// ErrEmptyKey indicates a table entry with an empty key.
	ErrEmptyKey = errors.New("symtab: empty key")
)

// UnknownSymbolError carries the key that had no mapping at any fallback level.
type UnknownSymbolError struct {
	Key string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("symtab: unknown symbol %q", e.Key)
}

func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}
