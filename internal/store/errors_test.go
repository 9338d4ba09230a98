package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertRowsExact(t *testing.T) {
	assert.NoError(t, assertRows(1, 1, 1, "op"))

	err := assertRows(0, 1, 1, "op")
	assert.ErrorIs(t, err, ErrUnexpectedRowCount)

	err = assertRows(2, 1, 1, "op")
	assert.ErrorIs(t, err, ErrUnexpectedRowCount)
}

func TestAssertRowsRange(t *testing.T) {
	assert.NoError(t, assertRows(0, 0, 1, "op"))
	assert.NoError(t, assertRows(1, 0, 1, "op"))
	assert.Error(t, assertRows(2, 0, 1, "op"))
}

func TestRowCountErrorMessage(t *testing.T) {
	err := assertRows(5, 0, 1, "adjust pool stake for validator 7")
	var rce *rowCountError
	assert.True(t, errors.As(err, &rce))
	assert.Contains(t, err.Error(), "adjust pool stake for validator 7")
	assert.Contains(t, err.Error(), "between 0 and 1")
}
