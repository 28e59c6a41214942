package analysis

import "errors"

var (
	// ErrInputFormat reports a file that is not an x86 ELF binary with code.
	ErrInputFormat = errors.New("unsupported input")

	// ErrMalformedLayout reports code section offsets or sizes that do not fit
	// the file or the address space.
	ErrMalformedLayout = errors.New("malformed binary layout")

	// ErrNoSymbols reports a per-symbol analysis of a binary whose code
	// region has no usable symbols.
	ErrNoSymbols = errors.New("no symbols found in the code section, the binary may have been stripped")
)
