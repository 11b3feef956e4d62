package ra

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestSpillSlotsAreRecycledLIFO(t *testing.T) {
	sm := NewSpillManager(8)
	a := sm.Allocate(8)
	b := sm.Allocate(8)
	assert.Equal(t, sm.Slot(a.Slot).Offset, 0)
	assert.Equal(t, sm.Slot(b.Slot).Offset, 8)
	assert.Equal(t, sm.AreaSize(), 16)

	sm.Free(a, 8)
	sm.Free(b, 8)
	assert.Equal(t, sm.FreeCount(8), 2)
	assert.Equal(t, sm.Allocate(8).Slot, b.Slot)
	assert.Equal(t, sm.Allocate(8).Slot, a.Slot)
	assert.Equal(t, sm.AreaSize(), 16)
}

func TestHalfSlotsShareEightBytes(t *testing.T) {
	sm := NewSpillManager(8)
	lo := sm.Allocate(4)
	hi := sm.Allocate(4)
	assert.Equal(t, lo.Slot, hi.Slot)
	assert.Equal(t, lo.Offset, 0)
	assert.Equal(t, hi.Offset, 4)
	assert.Equal(t, sm.AreaSize(), 8)

	sm.Free(hi, 4)
	assert.Equal(t, sm.FreeCount(4), 1)
	sm.Free(lo, 4)
	assert.Equal(t, sm.FreeCount(4), 0)
	assert.Equal(t, sm.FreeCount(8), 1)
	assert.Check(t, sm.Slot(lo.Slot).Empty())
}

func TestWideSlotsAreAligned(t *testing.T) {
	sm := NewSpillManager(8)
	sm.Allocate(8)
	v := sm.Allocate(16)
	assert.Equal(t, sm.Slot(v.Slot).Offset, 16)
	assert.Equal(t, sm.AreaSize(), 32)
}

func TestLockedFreesAreDeferred(t *testing.T) {
	sm := NewSpillManager(8)
	a := sm.Allocate(8)
	sm.Lock()
	sm.Free(a, 8)
	assert.Check(t, !sm.IsFree(a.Slot))
	b := sm.Allocate(8)
	assert.Check(t, b.Slot != a.Slot)

	released := sm.Unlock()
	assert.Check(t, is.DeepEqual(released, []SlotID{a.Slot}))
	assert.Check(t, sm.IsFree(a.Slot))
	assert.Check(t, !sm.Locked())
}

func TestReoccupiedSlotSurvivesUnlock(t *testing.T) {
	sm := NewSpillManager(8)
	a := sm.Allocate(8)
	sm.Lock()
	sm.Free(a, 8)
	sm.Occupy(a, 8)
	assert.Check(t, is.Len(sm.Unlock(), 0))
	assert.Check(t, !sm.IsFree(a.Slot))
}

func TestFreeNowBypassesLock(t *testing.T) {
	sm := NewSpillManager(8)
	a := sm.Allocate(8)
	sm.Lock()
	sm.FreeNow(a, 8)
	assert.Check(t, sm.IsFree(a.Slot))
	assert.Check(t, sm.Locked())
}

func TestSpillManagerMisuse(t *testing.T) {
	sm := NewSpillManager(8)
	a := sm.Allocate(8)
	sm.Free(a, 8)
	ae := expectAssertion(t, func() { sm.Free(a, 8) })
	assert.Check(t, is.Contains(ae.Msg, "freed twice"))

	expectAssertion(t, func() { sm.Allocate(32) })

	sm.Lock()
	expectAssertion(t, func() { sm.Lock() })
}
