package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 200},
		{"auth", Auth("invalid_signature"), 401},
		{"validation", Validation("missing field", nil), 400},
		{"unprocessable", Unprocessable("bad shape", errors.New("x")), 422},
		{"not found", NotFound("order not found"), 404},
		{"duplicate", Duplicate("seen"), 200},
		{"internal", Internal("db down", errors.New("conn refused")), 500},
		{"plain error", errors.New("boom"), 500},
		{"wrapped", fmt.Errorf("processing: %w", NotFound("raw event")), 404},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("conn refused")
	err := Internal("load raw event", cause)
	assert.Equal(t, "load raw event: conn refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "order not found", NotFound("order not found").Error())
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(NotFound("x")))
	assert.True(t, IsTerminal(Unprocessable("x", nil)))
	assert.False(t, IsTerminal(Internal("x", nil)))
	assert.False(t, IsTerminal(errors.New("x")))
}
