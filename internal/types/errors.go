package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every stage failure wraps exactly one of these so callers can
// classify it with errors.Is.
var (
	ErrMediaRead  = errors.New("media read error")
	ErrMediaWrite = errors.New("media write error")
	ErrModelLoad  = errors.New("model load error")
	ErrInference  = errors.New("inference error")
)

func MediaRead(op string, err error) error  { return wrap(op, ErrMediaRead, err) }
func MediaWrite(op string, err error) error { return wrap(op, ErrMediaWrite, err) }
func ModelLoad(op string, err error) error  { return wrap(op, ErrModelLoad, err) }
func Inference(op string, err error) error  { return wrap(op, ErrInference, err) }

func wrap(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// KindOf returns the error kind carried by err, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrMediaRead, ErrMediaWrite, ErrModelLoad, ErrInference} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
