// Package model defines the immutable kinematic tree consumed by the
// kinematics, dynamics and contact engines.
//
// A [Model] is built once from a [Description] (the structured equivalent
// of a parsed URDF/SDF file) and frozen: links are stored in topological
// order with every parent preceding its children, and each link i is
// connected to its parent by joint i. The root link is attached to the
// world by a synthetic joint, Floating for free-floating bases and Fixed
// otherwise, so the recursions never special-case the base.
//
// Models contain no mutable state and may be shared by any number of
// concurrent simulation sessions.
package model
