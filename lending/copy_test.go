package lending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liblend/lending-engine-go/lending"
)

func Test_CopyStatus_RoundTrip(t *testing.T) {
	for _, status := range []lending.CopyStatus{lending.CopyAvailable, lending.CopyBorrowed} {
		parsed, err := lending.ParseCopyStatus(status.String())

		assert.NoError(t, err)
		assert.Equal(t, status, parsed)
	}
}

func Test_ParseCopyStatus_With_UnknownValue(t *testing.T) {
	_, err := lending.ParseCopyStatus("Lost")

	assert.ErrorIs(t, err, lending.ErrUnknownCopyStatus)
}

func Test_Role_RoundTrip(t *testing.T) {
	for _, role := range []lending.Role{lending.RoleRegular, lending.RoleStaff} {
		parsed, err := lending.ParseRole(role.String())

		assert.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
}

func Test_ParseRole_With_UnknownValue(t *testing.T) {
	_, err := lending.ParseRole("admin")

	assert.ErrorIs(t, err, lending.ErrUnknownRole)
}
