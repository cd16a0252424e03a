// Package spatial implements the 6D spatial algebra used by the kinematics
// and dynamics engines.
//
// Quantities follow Featherstone's convention with the angular component
// first:
//
//   - [Motion]: spatial velocity or acceleration (angular, linear)
//   - [Force]: spatial force (moment, linear force)
//   - [Transform]: pose of one frame expressed in another
//   - [Inertia]: rigid-body spatial inertia (mass, center of mass,
//     rotational inertia about the center of mass)
//
// All types are plain values and all operations are pure functions; nothing
// in this package allocates shared state, so values may be used freely from
// concurrent goroutines.
package spatial
