// Package buffer provides fixed-capacity circular histories for streaming
// DSP state. Storage is allocated by New or Resize only; Push, At and
// Quantile never allocate, so the types are safe to use from an audio
// callback.
package buffer
