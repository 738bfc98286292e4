package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
	"github.com/cwbudde/algo-stepdetect/dsp/effects/dynamics"
	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
	"github.com/cwbudde/algo-stepdetect/measure/eventspectrum"
)

// channelScan owns the per-channel processing state.
type channelScan struct {
	channel     int
	rate        float64
	sensitivity float32
	blockSize   int
	bypass      bool
	windowLen   int

	det      *footstep.Detector
	env      *dynamics.GainEnvelope
	analyzer *eventspectrum.Analyzer
}

func (s *Scanner) newChannelScan(channel int, rate float64) (*channelScan, error) {
	det, err := footstep.New(s.detector, footstep.WithProcessorOptions(
		core.WithSampleRate(rate),
		core.WithBlockSize(s.cfg.BlockSize),
	))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedRate, err)
	}

	env, err := s.cfg.Gain.NewGainEnvelope(rate)
	if err != nil {
		return nil, err
	}

	windowLen := max(core.MsToSamples(s.cfg.Analysis.WindowMs, rate), 1)
	fftSize := s.cfg.Analysis.FFTSize
	if fftSize == 0 {
		fftSize = 8
		for fftSize < windowLen {
			fftSize <<= 1
		}
	}
	analyzer, err := eventspectrum.NewAnalyzer(eventspectrum.Config{
		SampleRate: rate,
		FFTSize:    fftSize,
		Bands:      s.detector.Bands,
	})
	if err != nil {
		return nil, err
	}

	return &channelScan{
		channel:     channel,
		rate:        rate,
		sensitivity: float32(s.cfg.Sensitivity),
		blockSize:   s.cfg.BlockSize,
		bypass:      s.cfg.Output.Bypass,
		windowLen:   windowLen,
		det:         det,
		env:         env,
		analyzer:    analyzer,
	}, nil
}

// run feeds in through the detector block by block. When out is non-nil the
// enhanced signal is written to it.
func (cs *channelScan) run(ctx context.Context, in, out []float32) (ChannelReport, error) {
	cr := ChannelReport{Channel: cs.channel}

	decisions := make([]bool, cs.blockSize)
	scratch := make([]float64, cs.blockSize)

	for start := 0; start < len(in); start += cs.blockSize {
		if err := ctx.Err(); err != nil {
			return cr, err
		}
		end := min(start+cs.blockSize, len(in))
		block := in[start:end]

		for i, x := range block {
			hit := cs.det.Detect(x, cs.sensitivity)
			decisions[i] = hit
			if hit {
				f := cs.det.Features()
				idx := start + i
				cr.Events = append(cr.Events, Event{
					Channel:    cs.channel,
					Index:      idx,
					Time:       time.Duration(float64(idx) / cs.rate * float64(time.Second)),
					Confidence: f.Confidence,
					Energy:     f.TotalEnergy,
					Threshold:  f.Threshold,
					Background: f.Background,
				})
			}
		}

		if out != nil && !cs.bypass {
			cs.enhance(block, out[start:end], decisions[:len(block)], scratch[:len(block)])
		}
	}

	for i := range cr.Events {
		cr.Events[i].Spectrum = cs.profile(in, cr.Events[i].Index)
	}
	cr.Stats = cs.det.Stats()
	cr.Background = float64(cs.det.BackgroundNoise())
	return cr, nil
}

func (cs *channelScan) enhance(in, out []float32, decisions []bool, scratch []float64) {
	for i, x := range in {
		scratch[i] = float64(x)
	}
	cs.env.ProcessInPlace(scratch, decisions)
	for i, v := range scratch {
		out[i] = float32(v)
	}
}

// profile analyzes the window centred on idx, clamped to the channel.
func (cs *channelScan) profile(in []float32, idx int) eventspectrum.Profile {
	start := max(idx-cs.windowLen/2, 0)
	end := min(start+cs.windowLen, len(in))
	seg := make([]float64, end-start)
	for i := range seg {
		seg[i] = float64(in[start+i])
	}
	return cs.analyzer.Analyze(seg)
}
