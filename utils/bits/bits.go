// Package bits implements the little-endian bitfields used for per-validator
// flags, such as which validators of a session hold a candidate's chunk.
// Bit i lives in Bytes[i/8] at position i%8.
package bits

import (
	mbits "math/bits"
)

// Array is a bitfield backed by a byte slice. The zero value is an empty field
// that grows on Set.
type Array struct {
	Bytes []byte
}

// NewArray returns a cleared field able to hold n bits without growing.
func NewArray(n int) *Array {
	return &Array{Bytes: make([]byte, (n+7)/8)}
}

// Wrap returns a field over b without copying it.
func Wrap(b []byte) *Array {
	return &Array{Bytes: b}
}

// Len is the number of bits the field can hold.
func (a *Array) Len() int {
	return len(a.Bytes) * 8
}

// Get reports whether bit i is set. Bits past the end are unset.
func (a *Array) Get(i int) bool {
	if i < 0 || i >= a.Len() {
		return false
	}
	return a.Bytes[i/8]&(1<<uint(i%8)) != 0
}

// Set sets bit i, growing the field if needed, and reports whether it was unset before.
func (a *Array) Set(i int) bool {
	if i < 0 {
		return false
	}
	if need := i/8 + 1; need > len(a.Bytes) {
		grown := make([]byte, need)
		copy(grown, a.Bytes)
		a.Bytes = grown
	}
	mask := byte(1 << uint(i%8))
	was := a.Bytes[i/8]&mask != 0
	a.Bytes[i/8] |= mask
	return !was
}

// Clear unsets bit i.
func (a *Array) Clear(i int) {
	if i < 0 || i >= a.Len() {
		return
	}
	a.Bytes[i/8] &^= 1 << uint(i%8)
}

// Count is the number of set bits.
func (a *Array) Count() int {
	n := 0
	for _, b := range a.Bytes {
		n += mbits.OnesCount8(b)
	}
	return n
}

// Indices lists the set bits in ascending order.
func (a *Array) Indices() []int {
	var out []int
	for i := 0; i < a.Len(); i++ {
		if a.Get(i) {
			out = append(out, i)
		}
	}
	return out
}
