// Package trustvector holds the small map-shaped types internal/scoredomain
// uses for its merge state: a peer-indexed trust vector and a
// (truster,trustee)-indexed local trust matrix, both keyed by the stable
// u32 peer IDs the linear combiner assigns. internal/rpcclients does not
// import it; it returns plain maps that scoredomain converts.
package trustvector

// Vector maps a peer ID to its trust value, e.g. a fetched global-trust
// vector.
type Vector map[uint32]float64

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Edge identifies one (truster, trustee) cell of a local trust matrix.
type Edge struct {
	Truster, Trustee uint32
}

// Matrix maps an Edge to its accumulated weight.
type Matrix map[Edge]float64

// Add accumulates delta into the cell (truster, trustee).
func (m Matrix) Add(truster, trustee uint32, delta float64) {
	m[Edge{Truster: truster, Trustee: trustee}] += delta
}
