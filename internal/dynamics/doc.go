// Package dynamics implements the recursive rigid-body dynamics algorithms
// over a frozen model:
//
//   - [ForwardDynamics]: articulated-body algorithm, O(n) in the degrees of
//     freedom
//   - [InverseDynamics]: recursive Newton-Euler algorithm
//   - [MassMatrix]: composite-rigid-body algorithm
//   - [Energy]: kinetic and potential energy of the whole system
//
// All recursions run in the topological link order the model guarantees and
// handle every joint variant through the model's closed motion-subspace
// dispatch, so a free-floating base is just a six-degree-of-freedom joint.
//
// Near kinematic singularities the algorithms keep running with reduced
// numerical precision; they do not detect or report singular
// configurations.
package dynamics
