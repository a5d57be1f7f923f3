package pcm

import (
	"math"
	"sync/atomic"
)

// AtomicFloat32 is a float32 that can be read by the mix loop while another
// goroutine updates it. It stores the value's bits in an atomic uint32.
type AtomicFloat32 struct {
	bits atomic.Uint32
}

// Load atomically loads and returns the float32 value.
func (af *AtomicFloat32) Load() float32 {
	return math.Float32frombits(af.bits.Load())
}

// Store atomically stores the given float32 value.
func (af *AtomicFloat32) Store(val float32) {
	af.bits.Store(math.Float32bits(val))
}

// Gain is an AtomicFloat32 clamped to [0, 1] on store.
type Gain struct {
	AtomicFloat32
}

// NewGain returns a Gain set to val.
func NewGain(val float32) *Gain {
	g := &Gain{}
	g.Store(val)
	return g
}

// Store clamps val to [0, 1] and stores it.
func (g *Gain) Store(val float32) {
	g.AtomicFloat32.Store(Clamp(val, 0, 1))
}
