// Completion: 100% - Register pressure statistics complete
package ra

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// Stats counts what the allocator inserted and how full the register files got
type Stats struct {
	Spills       int
	Reloads      int
	Copies       int
	Exchanges    int
	Slots        int
	SpillArea    int
	PeakAssigned [NumKinds]int
	Unlocked     [NumKinds]int
}

// Pressure returns the peak fraction of allocatable registers in use, 0.0 to 1.0
func (s Stats) Pressure(kind Kind) float64 {
	if s.Unlocked[kind] == 0 {
		return 0
	}
	return float64(s.PeakAssigned[kind]) / float64(s.Unlocked[kind])
}

// IsSpillHeavy reports whether any kind peaked above 80% or anything was spilled
func (s Stats) IsSpillHeavy() bool {
	for k := Kind(0); k < NumKinds; k++ {
		if s.Pressure(k) > 0.8 {
			return true
		}
	}
	return s.Spills > 0
}

// Add accumulates the counters of another method
func (s *Stats) Add(o Stats) {
	s.Spills += o.Spills
	s.Reloads += o.Reloads
	s.Copies += o.Copies
	s.Exchanges += o.Exchanges
	s.Slots += o.Slots
	s.SpillArea += o.SpillArea
	for k := range s.PeakAssigned {
		s.PeakAssigned[k] = max(s.PeakAssigned[k], o.PeakAssigned[k])
		s.Unlocked[k] = max(s.Unlocked[k], o.Unlocked[k])
	}
}

// Report formats the counters for display
func (s Stats) Report(label string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Register Pressure: %s ===\n", label)
	for k := Kind(0); k < NumKinds; k++ {
		if s.Unlocked[k] == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s: peak %d/%d (%.1f%%)\n", k, s.PeakAssigned[k], s.Unlocked[k], s.Pressure(k)*100)
	}
	fmt.Fprintf(&sb, "spills %d, reloads %d, copies %d, exchanges %d\n", s.Spills, s.Reloads, s.Copies, s.Exchanges)
	fmt.Fprintf(&sb, "spill area: %s in %d slots\n", units.BytesSize(float64(s.SpillArea)), s.Slots)
	if s.IsSpillHeavy() {
		sb.WriteString("high pressure\n")
	}
	return sb.String()
}

// samplePressure records the number of registers holding a value
func (m *Machine) samplePressure() {
	for k := Kind(0); k < NumKinds; k++ {
		n := 0
		regs := m.kindRegs(k)
		for i := range regs {
			if st := regs[i].State; st == Assigned || st == Blocked {
				n++
			}
		}
		m.stats.PeakAssigned[k] = max(m.stats.PeakAssigned[k], n)
		m.stats.Unlocked[k] = m.files[k].Unlocked()
	}
}
