package document

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidContainer  = errors.New("invalid container")
	ErrDecode            = errors.New("decode failed")
)

// UnsupportedFormatError is returned when no decoder can handle the input.
type UnsupportedFormatError struct {
	Format Format
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Reason)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// InvalidContainerError is returned when a required part of an e-book
// container is missing or malformed. Element names the part.
type InvalidContainerError struct {
	Element string
	Err     error
}

func (e *InvalidContainerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid container: missing or malformed %s", e.Element)
	}
	return fmt.Sprintf("invalid container: %s: %v", e.Element, e.Err)
}

func (e *InvalidContainerError) Is(target error) bool {
	return target == ErrInvalidContainer
}

func (e *InvalidContainerError) Unwrap() error {
	return e.Err
}

// DecodeError wraps any failure while extracting text from a container.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s document: %v", e.Format, e.Err)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
