package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCarriesUnderlyingMessage(t *testing.T) {
	cause := errors.New("The Access Key Id you provided does not exist in our records.")
	err := StoreFault("list objects", cause)

	assert.Equal(t, cause.Error(), err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, FaultStore, KindOf(err))

	var de *Error
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &de)
	assert.Equal(t, "list objects", de.Op)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, FaultInput, KindOf(InputFault("put object", "filename is required")))
	assert.Equal(t, FaultStore, KindOf(errors.New("untyped")))
	assert.Equal(t, "filename is required", InputFault("put object", "filename is required").Error())
}
