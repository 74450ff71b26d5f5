package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	req := require.New(t)

	req.Equal("validation_error", Code(fmt.Errorf("%w: content is empty", ErrValidation)))
	req.Equal("persistence_error", Code(fmt.Errorf("save: %w", fmt.Errorf("%w: timeout", ErrPersistence))))
	req.Equal("unauthorized", Code(ErrUnauthorized))
	req.Equal("not_found", Code(ErrNotFound))
	req.Equal("forbidden", Code(ErrForbidden))
	req.Equal("internal_error", Code(errors.New("boom")))
}
