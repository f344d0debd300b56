package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/permit-map/internal/pkg/errors"
)

type importRequest struct {
	Town  string   `validate:"required,township"`
	Files []string `validate:"required,min=1"`
}

func TestValidate_Township(t *testing.T) {
	assert.NoError(t, Validate(importRequest{Town: "cary", Files: []string{"cary.geojson"}}))
	assert.Error(t, Validate(importRequest{Town: "raleigh", Files: []string{"x.geojson"}}))
	assert.Error(t, Validate(importRequest{Town: "apex"}))
}

func TestValidate_ReturnsInvalidRequestWithFields(t *testing.T) {
	err := Validate(importRequest{Town: "durham", Files: []string{"a.geojson"}})

	var appErr *errors.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, errors.ErrInvalidRequest.Code, appErr.Code)
		assert.Equal(t, "township", appErr.Details["importRequest.Town"])
	}
}
