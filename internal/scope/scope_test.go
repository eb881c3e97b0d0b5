package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroScope_FailsClosed(t *testing.T) {
	var s Scope
	assert.ErrorIs(t, s.Validate(), ErrNoScope)
	assert.False(t, s.Allows("org_1"))
	assert.False(t, s.Allows(""))
}

func TestFor_AllowsOnlyOwnOrg(t *testing.T) {
	s := For("org_1")
	assert.NoError(t, s.Validate())
	assert.True(t, s.Allows("org_1"))
	assert.False(t, s.Allows("org_2"))
	assert.False(t, s.IsUnscoped())
}

func TestFor_EmptyOrgIsZero(t *testing.T) {
	// An empty org ID must not silently become a match-nothing-or-everything
	// scope; it is the zero value and fails closed.
	s := For("")
	assert.ErrorIs(t, s.Validate(), ErrNoScope)
}

func TestUnscoped_AllowsAll(t *testing.T) {
	s := Unscoped("trial expiry sweep")
	assert.NoError(t, s.Validate())
	assert.True(t, s.Allows("org_1"))
	assert.True(t, s.Allows("org_2"))
	assert.True(t, s.IsUnscoped())
	assert.Equal(t, "trial expiry sweep", s.Reason())
}

func TestUnscoped_RequiresReason(t *testing.T) {
	assert.Panics(t, func() { Unscoped("") })
	assert.Panics(t, func() { Unscoped("   ") })
}
