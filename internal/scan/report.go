package scan

import (
	"slices"
	"time"

	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
	"github.com/cwbudde/algo-stepdetect/measure/eventspectrum"
)

// Event is one detected footstep.
type Event struct {
	Channel    int
	Index      int // sample index within the channel
	Time       time.Duration
	Confidence float64
	Energy     float64 // total band RMS at the decision
	Threshold  float64
	Background float64
	Spectrum   eventspectrum.Profile
}

// ChannelReport summarizes one channel.
type ChannelReport struct {
	Channel    int
	Stats      footstep.Stats
	Events     []Event
	Background float64 // level at the end of the channel
}

// MeanConfidence returns the average event confidence, or 0 without events.
func (c ChannelReport) MeanConfidence() float64 {
	if len(c.Events) == 0 {
		return 0
	}
	var sum float64
	for _, e := range c.Events {
		sum += e.Confidence
	}
	return sum / float64(len(c.Events))
}

// Report is the outcome of scanning one recording.
type Report struct {
	Path       string
	SampleRate int
	Frames     int
	Duration   time.Duration
	Preset     string
	// Threshold is the threshold at the configured sensitivity, before any
	// noise coupling.
	Threshold float64
	Channels  []ChannelReport
	// OutputPath is set when an enhanced file was written.
	OutputPath string
	Bypassed   bool
	Elapsed    time.Duration
}

// Events returns all events ordered by time, then channel.
func (r *Report) Events() []Event {
	var all []Event
	for _, ch := range r.Channels {
		all = append(all, ch.Events...)
	}
	slices.SortStableFunc(all, func(a, b Event) int {
		if a.Index != b.Index {
			return a.Index - b.Index
		}
		return a.Channel - b.Channel
	})
	return all
}

// TotalEvents returns the number of events over all channels.
func (r *Report) TotalEvents() int {
	n := 0
	for _, ch := range r.Channels {
		n += len(ch.Events)
	}
	return n
}

// Stats returns the counters summed over all channels.
func (r *Report) Stats() footstep.Stats {
	var st footstep.Stats
	for _, ch := range r.Channels {
		st.Samples += ch.Stats.Samples
		st.Rejected += ch.Stats.Rejected
		st.Detections += ch.Stats.Detections
		st.Filtered += ch.Stats.Filtered
	}
	return st
}

// Rate returns events per minute over the recording.
func (r *Report) Rate() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.TotalEvents()) / r.Duration.Minutes()
}

// MeanSpectrum averages the event profiles' centroid and band shares. ok is
// false without events carrying energy.
func (r *Report) MeanSpectrum() (centroid float64, shares []float64, ok bool) {
	n := 0
	for _, e := range r.Events() {
		if e.Spectrum.Energy == 0 {
			continue
		}
		if shares == nil {
			shares = make([]float64, len(e.Spectrum.BandShares))
		}
		centroid += e.Spectrum.Centroid
		for i, s := range e.Spectrum.BandShares {
			if i < len(shares) {
				shares[i] += s
			}
		}
		n++
	}
	if n == 0 {
		return 0, nil, false
	}
	centroid /= float64(n)
	for i := range shares {
		shares[i] /= float64(n)
	}
	return centroid, shares, true
}
