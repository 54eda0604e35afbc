//go:build !unix

package terminal

import (
	"context"
	"errors"
	"os"
)

type RawInput struct{}

func OpenRawInput(f *os.File) (*RawInput, error) {
	return nil, errors.New("interactive mode needs a unix terminal")
}

func (r *RawInput) ReadKey(ctx context.Context) (byte, error) {
	return 0, errors.New("raw input unavailable")
}

func (r *RawInput) Close() error { return nil }
