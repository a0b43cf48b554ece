package peano

import (
	"math/bits"
)

// Bitmask is a 256-bit set of registry ids.
// Component and resource ids are both uint8, so one mask covers either table.
type Bitmask [4]uint64

// Set sets the bit for id.
func (m *Bitmask) Set(id uint8) {
	m[id/64] |= 1 << (id % 64)
}

// Clear clears the bit for id.
func (m *Bitmask) Clear(id uint8) {
	m[id/64] &^= 1 << (id % 64)
}

// Has returns true if the bit for id is set.
func (m *Bitmask) Has(id uint8) bool {
	return m[id/64]&(1<<(id%64)) != 0
}

// ContainsAll returns true if all bits set in other are also set in m.
func (m *Bitmask) ContainsAll(other Bitmask) bool {
	return (m[0]&other[0] == other[0]) &&
		(m[1]&other[1] == other[1]) &&
		(m[2]&other[2] == other[2]) &&
		(m[3]&other[3] == other[3])
}

// ContainsAny returns true if any bit set in other is also set in m.
func (m *Bitmask) ContainsAny(other Bitmask) bool {
	return (m[0]&other[0] != 0) ||
		(m[1]&other[1] != 0) ||
		(m[2]&other[2] != 0) ||
		(m[3]&other[3] != 0)
}

// IsZero returns true if no bits are set.
func (m *Bitmask) IsZero() bool {
	return m[0] == 0 && m[1] == 0 && m[2] == 0 && m[3] == 0
}

// Or returns a new bitmask with bits set from both m and other.
func (m Bitmask) Or(other Bitmask) Bitmask {
	return Bitmask{
		m[0] | other[0],
		m[1] | other[1],
		m[2] | other[2],
		m[3] | other[3],
	}
}

// AndNot returns a new bitmask with bits set in m but not in other.
func (m Bitmask) AndNot(other Bitmask) Bitmask {
	return Bitmask{
		m[0] &^ other[0],
		m[1] &^ other[1],
		m[2] &^ other[2],
		m[3] &^ other[3],
	}
}

// Count returns the number of bits set.
func (m *Bitmask) Count() int {
	return bits.OnesCount64(m[0]) +
		bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) +
		bits.OnesCount64(m[3])
}

// IDs returns the set ids in ascending order.
func (m Bitmask) IDs() []uint8 {
	out := make([]uint8, 0, m.Count())
	for word := range m {
		w := m[word]
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, uint8(word*64+bit))
			w &= w - 1
		}
	}
	return out
}

// IsDisjoint returns true if no bits are set in both m and other.
func (m *Bitmask) IsDisjoint(other Bitmask) bool {
	return !m.ContainsAny(other)
}
