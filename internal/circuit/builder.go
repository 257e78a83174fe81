package circuit

import "math"

// RegisterSize is the fixed width of the quantum and classical registers.
const RegisterSize = 8

// DecayPolicy controls how the controlled-rotation angle decays along the
// correlation chain. The available circuit fragments leave the exact law
// open, so it is an explicit policy rather than a hard-coded choice.
type DecayPolicy string

const (
	// DecayHalving halves the controlled-rotation angle at each chain step.
	DecayHalving DecayPolicy = "halving"
	// DecayConstant applies the full angle at every chain step, matching the
	// reference circuit fragment.
	DecayConstant DecayPolicy = "constant"
)

// ReadoutPolicy controls how the closing basis-change layer interleaves with
// measurement. Also an explicit policy; see DecayPolicy.
type ReadoutPolicy string

const (
	// ReadoutFlat applies a Hadamard to every qubit and then measures the
	// whole register, matching the reference circuit fragment.
	ReadoutFlat ReadoutPolicy = "flat"
	// ReadoutCascade measures qubits in adjacent pairs, applying the closing
	// Hadamard to the lower qubit of each pair just before the pair is read.
	ReadoutCascade ReadoutPolicy = "cascade"
)

// Builder constructs falsification circuits for a given parameter.
// The zero value is not usable; use NewBuilder.
type Builder struct {
	decay   DecayPolicy
	readout ReadoutPolicy
}

// Option configures a Builder.
type Option func(*Builder)

// WithDecayPolicy sets the correlation-chain angle decay law.
func WithDecayPolicy(p DecayPolicy) Option {
	return func(b *Builder) { b.decay = p }
}

// WithReadoutPolicy sets the measurement interleaving.
func WithReadoutPolicy(p ReadoutPolicy) Option {
	return func(b *Builder) { b.readout = p }
}

// NewBuilder creates a circuit builder. Defaults: halving decay, flat readout.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		decay:   DecayHalving,
		readout: ReadoutFlat,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs the falsification circuit for the given parameter over the
// fixed 8-qubit register. A zero parameter degenerates every rotation to the
// identity but still builds the full entangled state; that is intended.
//
// Stages:
//  1. GHZ preparation: H on qubit 0, then a CX chain down the register.
//  2. Phase encoding: RZ(param*pi*(i+1)) on each qubit i.
//  3. Correlation chain: CRZ between neighbours with the configured decay,
//     and for interior triples a CCX / RZ / CCX sandwich that kicks a phase
//     only when both controls are set, then undoes the flip.
//  4. Readout: closing Hadamard layer and measurement per the readout policy.
func (b *Builder) Build(param float64) Circuit {
	gates := make([]Gate, 0, 64)

	// GHZ preparation
	gates = append(gates, Gate{Type: GateH, Qubits: []int{0}})
	for i := 0; i < RegisterSize-1; i++ {
		gates = append(gates, Gate{Type: GateCX, Qubits: []int{i, i + 1}})
	}

	// Phase encoding, angle grows linearly with qubit index
	for i := 0; i < RegisterSize; i++ {
		gates = append(gates, Gate{
			Type:   GateRZ,
			Qubits: []int{i},
			Angle:  param * math.Pi * float64(i+1),
		})
	}

	// Correlation chain
	angle := param * math.Pi
	for i := 0; i < RegisterSize-1; i++ {
		gates = append(gates, Gate{
			Type:   GateCRZ,
			Qubits: []int{i, i + 1},
			Angle:  b.chainAngle(angle, i),
		})
		if i < RegisterSize-2 {
			// Conditional phase kick: flip, rotate, unflip. The second CCX
			// restores the register so only the phase survives.
			gates = append(gates,
				Gate{Type: GateCCX, Qubits: []int{i, i + 1, i + 2}},
				Gate{Type: GateRZ, Qubits: []int{i + 2}, Angle: b.chainAngle(angle, i) / 2},
				Gate{Type: GateCCX, Qubits: []int{i, i + 1, i + 2}},
			)
		}
	}

	// Readout
	switch b.readout {
	case ReadoutCascade:
		for pair := 0; pair < RegisterSize/2; pair++ {
			lo, hi := 2*pair, 2*pair+1
			gates = append(gates,
				Gate{Type: GateH, Qubits: []int{lo}},
				Gate{Type: GateMeasure, Qubits: []int{lo}, Clbit: lo},
				Gate{Type: GateH, Qubits: []int{hi}},
				Gate{Type: GateMeasure, Qubits: []int{hi}, Clbit: hi},
			)
		}
	default: // ReadoutFlat
		for i := 0; i < RegisterSize; i++ {
			gates = append(gates, Gate{Type: GateH, Qubits: []int{i}})
		}
		for i := 0; i < RegisterSize; i++ {
			gates = append(gates, Gate{Type: GateMeasure, Qubits: []int{i}, Clbit: i})
		}
	}

	return Circuit{
		Qubits: RegisterSize,
		Clbits: RegisterSize,
		Gates:  gates,
	}
}

// chainAngle applies the decay policy to the base angle at chain step i.
func (b *Builder) chainAngle(base float64, i int) float64 {
	switch b.decay {
	case DecayConstant:
		return base
	default: // DecayHalving
		return base / math.Pow(2, float64(i))
	}
}
