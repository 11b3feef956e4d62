package ra

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestStateTransitions(t *testing.T) {
	legal := map[[2]RegState]bool{
		{Free, Free}:           true,
		{Free, Assigned}:       true,
		{Assigned, Assigned}:   true,
		{Assigned, Free}:       true,
		{Assigned, Unlatched}:  true,
		{Assigned, Blocked}:    true,
		{Unlatched, Unlatched}: true,
		{Unlatched, Assigned}:  true,
		{Unlatched, Free}:      true,
		{Blocked, Assigned}:    true,
		{Blocked, Free}:        true,
	}
	states := []RegState{Free, Assigned, Blocked, Unlatched, Locked}
	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, canTransition(from, to), legal[[2]RegState{from, to}], "%s -> %s", from, to)
		}
	}
}

func TestIllegalTransitionIsProtocolViolation(t *testing.T) {
	r := &RealRegister{Name: "r0", State: Free}
	ae := expectAssertion(t, func() { r.setState(Blocked) })
	assert.Equal(t, ae.Kind, ProtocolViolation)

	locked := &RealRegister{Name: "sp", State: Locked}
	expectAssertion(t, func() { locked.setState(Free) })
}

func TestEnsureBlockedIsIdempotent(t *testing.T) {
	r := &RealRegister{Name: "r0", State: Assigned}
	r.ensureBlocked()
	r.ensureBlocked()
	assert.Equal(t, r.State, Blocked)
}
