// Package circuit builds the parameterized falsification circuits submitted
// to the remote execution backend. Construction is pure and deterministic:
// the same parameter always yields the same gate sequence.
package circuit

// GateType identifies one of the gate variants used by the builder.
type GateType string

const (
	// GateH is a single-qubit basis change (Hadamard).
	GateH GateType = "h"
	// GateRZ is a single-qubit Z rotation.
	GateRZ GateType = "rz"
	// GateCX is a two-qubit controlled bit flip (entangling).
	GateCX GateType = "cx"
	// GateCRZ is a two-qubit controlled Z rotation.
	GateCRZ GateType = "crz"
	// GateCCX is a three-qubit controlled-controlled bit flip.
	GateCCX GateType = "ccx"
	// GateMeasure reads a qubit into a classical bit slot.
	GateMeasure GateType = "measure"
)

// Gate is one operation in a circuit. Qubits are target indices in gate
// order (controls first, target last). Angle is meaningful only for rotation
// gates. Clbit is meaningful only for measurements.
type Gate struct {
	Type   GateType `json:"type"`
	Qubits []int    `json:"qubits"`
	Angle  float64  `json:"angle,omitempty"`
	Clbit  int      `json:"clbit,omitempty"`
}

// Circuit is an ordered gate sequence over a fixed register. Immutable once
// built; the execution client consumes it without modification.
type Circuit struct {
	Qubits int    `json:"qubits"`
	Clbits int    `json:"clbits"`
	Gates  []Gate `json:"gates"`
}

// GateCount returns the number of gates of the given type.
func (c Circuit) GateCount(t GateType) int {
	n := 0
	for _, g := range c.Gates {
		if g.Type == t {
			n++
		}
	}
	return n
}

// MeasuredQubits returns the qubit indices that have a measurement gate, in
// circuit order.
func (c Circuit) MeasuredQubits() []int {
	out := make([]int, 0, c.Qubits)
	for _, g := range c.Gates {
		if g.Type == GateMeasure {
			out = append(out, g.Qubits[0])
		}
	}
	return out
}
