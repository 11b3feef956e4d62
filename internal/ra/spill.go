// Completion: 100% - Backing store management complete
package ra

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// BackingStore is a spill slot in the method's frame
type BackingStore struct {
	ID         SlotID
	Size       int // 4, 8 or 16
	Offset     int // from the bottom of the spill area
	FirstHalf  bool
	SecondHalf bool
	// MaxSpillDepth is 0 when unprotected, 1 for a main-line spill,
	// 2 for a hot-path spill and 3 for a cold-path spill
	MaxSpillDepth int
}

// Empty reports whether no byte of the slot is in use
func (s *BackingStore) Empty() bool {
	return !s.FirstHalf && !s.SecondHalf
}

func (s *BackingStore) full() bool {
	if s.Size == 8 {
		return s.FirstHalf && s.SecondHalf
	}
	return s.FirstHalf
}

// SpillManager hands out backing stores and recycles them through per-size free lists
type SpillManager struct {
	pointerSize int
	slots       []BackingStore

	free4, free8, free16 []SlotID

	locked   bool
	deferred mapset.Set[SlotID]
	areaSize int
}

// NewSpillManager creates an empty spill area
func NewSpillManager(pointerSize int) *SpillManager {
	return &SpillManager{
		pointerSize: pointerSize,
		deferred:    mapset.NewThreadUnsafeSet[SlotID](),
	}
}

// Slot returns the backing store with the given id
func (sm *SpillManager) Slot(id SlotID) *BackingStore {
	return &sm.slots[id]
}

// Slots returns every backing store ever allocated
func (sm *SpillManager) Slots() []BackingStore {
	return sm.slots
}

// AreaSize returns the size of the spill area in bytes
func (sm *SpillManager) AreaSize() int {
	return sm.areaSize
}

// Locked reports whether frees are being deferred
func (sm *SpillManager) Locked() bool {
	return sm.locked
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func (sm *SpillManager) newSlot(size int) SlotID {
	id := SlotID(len(sm.slots))
	off := alignUp(sm.areaSize, size)
	sm.areaSize = off + size
	sm.slots = append(sm.slots, BackingStore{ID: id, Size: size, Offset: off})
	return id
}

func pop(list *[]SlotID) (SlotID, bool) {
	n := len(*list)
	if n == 0 {
		return NoSlot, false
	}
	id := (*list)[n-1]
	*list = (*list)[:n-1]
	return id, true
}

// popUndeferred takes the most recently freed slot that has no free pending
// for a region; a half released inside a region stays reserved until Unlock
func (sm *SpillManager) popUndeferred(list *[]SlotID) (SlotID, bool) {
	for i := len(*list) - 1; i >= 0; i-- {
		id := (*list)[i]
		if sm.deferred.Contains(id) {
			continue
		}
		*list = append((*list)[:i], (*list)[i+1:]...)
		return id, true
	}
	return NoSlot, false
}

func remove(list *[]SlotID, id SlotID) {
	for i, s := range *list {
		if s == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func contains(list []SlotID, id SlotID) bool {
	for _, s := range list {
		if s == id {
			return true
		}
	}
	return false
}

// occupyHalf takes the free half of a slot from the 4-byte list
func (sm *SpillManager) occupyHalf(id SlotID) SlotRef {
	s := &sm.slots[id]
	if s.Size != 8 || !s.FirstHalf {
		s.FirstHalf = true
		return SlotRef{Slot: id}
	}
	s.SecondHalf = true
	return SlotRef{Slot: id, Offset: 4}
}

// Allocate returns a backing store for a value of size bytes
func (sm *SpillManager) Allocate(size int) SlotRef {
	assertf(size > 0 && size <= 16, "spill of %d bytes", size)
	switch {
	case size <= 4:
		if id, ok := sm.popUndeferred(&sm.free4); ok {
			return sm.occupyHalf(id)
		}
		if sm.pointerSize >= 8 {
			id, ok := pop(&sm.free8)
			if !ok {
				id = sm.newSlot(8)
			}
			sm.slots[id].FirstHalf = true
			sm.free4 = append(sm.free4, id)
			return SlotRef{Slot: id}
		}
		id := sm.newSlot(4)
		sm.slots[id].FirstHalf = true
		return SlotRef{Slot: id}
	case size <= 8:
		id, ok := pop(&sm.free8)
		if !ok {
			id = sm.newSlot(8)
		}
		s := &sm.slots[id]
		s.FirstHalf, s.SecondHalf = true, true
		return SlotRef{Slot: id}
	default:
		id, ok := pop(&sm.free16)
		if !ok {
			id = sm.newSlot(16)
		}
		sm.slots[id].FirstHalf = true
		return SlotRef{Slot: id}
	}
}

// isHalf reports whether a value of size bytes uses only part of the slot
func (sm *SpillManager) isHalf(ref SlotRef, size int) bool {
	return size <= 4 && sm.slots[ref.Slot].Size == 8
}

func (sm *SpillManager) occupied(ref SlotRef, size int) bool {
	s := &sm.slots[ref.Slot]
	if sm.isHalf(ref, size) {
		if ref.Offset == 0 {
			return s.FirstHalf
		}
		return s.SecondHalf
	}
	return s.FirstHalf || s.SecondHalf
}

func (sm *SpillManager) setOccupied(ref SlotRef, size int, on bool) {
	s := &sm.slots[ref.Slot]
	switch {
	case sm.isHalf(ref, size) && ref.Offset == 0:
		s.FirstHalf = on
	case sm.isHalf(ref, size):
		s.SecondHalf = on
	case s.Size == 8:
		s.FirstHalf, s.SecondHalf = on, on
	default:
		s.FirstHalf = on
	}
}

// Occupy marks a slot the owner already holds as in use again
func (sm *SpillManager) Occupy(ref SlotRef, size int) {
	sm.setOccupied(ref, size, true)
	if sm.slots[ref.Slot].full() {
		remove(&sm.free4, ref.Slot)
	}
}

// Free releases the bytes a value of size bytes holds in ref.
// While the free list is locked the slot keeps its owner and is queued until Unlock.
func (sm *SpillManager) Free(ref SlotRef, size int) {
	id := ref.Slot
	if !sm.occupied(ref, size) {
		switch {
		case sm.locked:
			// the other path of the region released it already
			return
		case sm.deferred.Contains(id):
			sm.deferred.Remove(id)
			sm.release(id)
			return
		default:
			protocolf("slot %d freed twice", id)
		}
	}
	sm.setOccupied(ref, size, false)
	if sm.locked {
		sm.deferred.Add(id)
		return
	}
	sm.deferred.Remove(id)
	sm.release(id)
}

// FreeNow releases ref as if the free list were unlocked
func (sm *SpillManager) FreeNow(ref SlotRef, size int) {
	locked := sm.locked
	sm.locked = false
	sm.Free(ref, size)
	sm.locked = locked
}

// release puts a slot on the free list matching its remaining capacity
func (sm *SpillManager) release(id SlotID) {
	s := &sm.slots[id]
	switch {
	case s.Size == 8 && s.Empty():
		remove(&sm.free4, id)
		assertf(!contains(sm.free8, id), "slot %d released twice", id)
		sm.free8 = append(sm.free8, id)
	case s.Size == 8:
		if !contains(sm.free4, id) {
			sm.free4 = append(sm.free4, id)
		}
	case s.Size == 4:
		assertf(!contains(sm.free4, id), "slot %d released twice", id)
		sm.free4 = append(sm.free4, id)
	default:
		assertf(!contains(sm.free16, id), "slot %d released twice", id)
		sm.free16 = append(sm.free16, id)
	}
}

// Lock defers every free until Unlock
func (sm *SpillManager) Lock() {
	assertf(!sm.locked, "spill free list locked twice")
	sm.locked = true
}

// Unlock releases the deferred slots that are still empty and returns them
func (sm *SpillManager) Unlock() []SlotID {
	sm.locked = false
	var released []SlotID
	for _, id := range mapset.Sorted(sm.deferred) {
		sm.deferred.Remove(id)
		if sm.slots[id].full() {
			continue
		}
		sm.release(id)
		released = append(released, id)
	}
	return released
}

// IsFree reports whether the slot sits on a free list
func (sm *SpillManager) IsFree(id SlotID) bool {
	return contains(sm.free4, id) || contains(sm.free8, id) || contains(sm.free16, id)
}

// FreeCount returns the length of the free list for one size class
func (sm *SpillManager) FreeCount(size int) int {
	switch {
	case size <= 4:
		return len(sm.free4)
	case size <= 8:
		return len(sm.free8)
	default:
		return len(sm.free16)
	}
}
