package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrValidation, ErrUnavailable}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b, "sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		expectedMsg string
		display     string
	}{
		{name: "whole collection", category: "", expectedMsg: "no quotes available", display: "No quotes available."},
		{name: "scoped to category", category: "Motivation", expectedMsg: `no quotes in category "Motivation"`, display: "No quotes in this category."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError("quotes", tt.category)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var nf *NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.category, nf.Category)
			assert.Equal(t, tt.display, nf.DisplayMessage())
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{
			name:        "field",
			err:         NewValidationError("text", "must not be empty"),
			expectedMsg: "validation failed for text: must not be empty",
		},
		{
			name:        "no field",
			err:         NewValidationError("", "bad input"),
			expectedMsg: "validation failed: bad input",
		},
		{
			name:        "batch item with field",
			err:         NewItemValidationError(2, "category", "must not be empty"),
			expectedMsg: "validation failed for item 2 category: must not be empty",
		},
		{
			name:        "batch item without field",
			err:         NewItemValidationError(0, "", "must be an object"),
			expectedMsg: "validation failed for item 0: must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			assert.True(t, IsValidation(tt.err))
			assert.False(t, IsNotFound(tt.err))
		})
	}
}

func TestUnavailableError(t *testing.T) {
	assert.Equal(t, `service "sync" unavailable: timeout`, NewUnavailableError("sync", "timeout").Error())
	assert.Equal(t, `service "store" unavailable`, NewUnavailableError("store", "").Error())
}

func TestIsHelpers_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("adding quote: %w", NewValidationError("text", "empty"))
	assert.True(t, IsValidation(wrapped))

	wrapped = fmt.Errorf("sync: %w", NewUnavailableError("placeholder", "503"))
	assert.True(t, IsUnavailable(wrapped))

	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}
