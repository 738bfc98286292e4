// Package dynamics provides gain stages driven by event detectors.
//
// GainEnvelope converts per-sample event decisions, such as those produced
// by the footstep detector, into a smooth gain: a one-pole attack toward a
// target gain, a hold period and a one-pole release back to unity. Output
// samples are clamped to [-1, 1].
package dynamics
