package dtos

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Qty   int    `json:"qty" validate:"min=1"`
	Kind  string `json:"kind" validate:"oneof=PRODUCT PROGRAMME"`
}

func TestFormatValidationErrors(t *testing.T) {
	err := validator.New().Struct(sample{Email: "nope", Qty: 0, Kind: "X"})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	details := FormatValidationErrors(verrs)
	require.Len(t, details, 3)

	codes := map[string]string{}
	for _, d := range details {
		codes[d.Field] = d.Code
	}
	assert.Equal(t, "validation_email", codes["Email"])
	assert.Equal(t, "validation_min", codes["Qty"])
	assert.Equal(t, "validation_oneof", codes["Kind"])
}
