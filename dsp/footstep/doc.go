// Package footstep implements a streaming detector for short, percussive
// footfall-like transients in a mono audio signal.
//
// Every call to [Detector.Detect] consumes one sample and runs a fixed
// pipeline:
//
//   - a band filter bank splits the signal into fundamental, primary,
//     harmonic and detail bands and tracks each band's RMS energy;
//   - a [SpectralEstimator] scores a coarse centroid over the latest
//     magnitudes and the recency-weighted rise of instantaneous energy;
//   - a [NoiseFloorEstimator] follows the background level from a low
//     percentile of recent squared samples;
//   - a [TemporalScorer] rates how long the current activity has lasted;
//   - a [Scorer] fuses these into a confidence in [0, 1], scaled by the
//     background level;
//   - a [StateMachine] compares the confidence to a sensitivity-dependent
//     threshold, applies the band and energy gates and enforces a cooldown
//     between events.
//
// A confident sample is only an event when the band likelihood is non-zero
// and the band energy is concentrated: total band RMS divided by the
// broadband input RMS must reach EnergyGate.MinConcentration. White noise
// and single-sample clicks fail this; tones inside the bands pass.
//
// The threshold for sensitivity s in [0, 1] is
//
//	Threshold.Max - s*(Threshold.Max-Threshold.Min) + NoiseCoupling*(background - Noise.Min)
//
// clamped to [0, 1], so raising the sensitivity never raises the threshold.
//
// All storage is allocated by [New] and [Detector.Prepare]; Detect performs
// no allocation, locking or unbounded work, and may be called from an audio
// callback. A Detector serves exactly one channel.
//
// Basic usage:
//
//	d, err := footstep.New(footstep.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if err := d.Prepare(48000, 256); err != nil {
//	    return err
//	}
//	for _, x := range block {
//	    if d.Detect(x, 0.5) {
//	        fmt.Println("step", d.LastConfidence())
//	    }
//	}
package footstep
