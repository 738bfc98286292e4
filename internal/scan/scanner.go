// Package scan runs the footstep detector over recordings, one detector per
// channel, and optionally writes an enhanced copy.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-stepdetect/dsp/core"
	"github.com/cwbudde/algo-stepdetect/dsp/filter/bank"
	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
	"github.com/cwbudde/algo-stepdetect/internal/audio"
	"github.com/cwbudde/algo-stepdetect/internal/config"
	"github.com/cwbudde/algo-stepdetect/internal/observe"
)

// ErrUnsupportedRate is returned for recordings whose sample rate the
// detector cannot run at.
var ErrUnsupportedRate = errors.New("scan: unsupported sample rate")

// Scanner holds the resolved configuration. It is safe for concurrent use;
// every scan builds its own detectors.
type Scanner struct {
	cfg      *config.Config
	detector footstep.Config
	logger   *slog.Logger
	metrics  *observe.Metrics
	write    bool
	outDir   string
	parallel int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scanner) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithOutput enables writing enhanced files. An empty dir writes next to the
// input.
func WithOutput(dir string) Option {
	return func(s *Scanner) {
		s.write = true
		s.outDir = dir
	}
}

// WithParallelism bounds how many files ScanFiles processes at once.
func WithParallelism(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.parallel = n
		}
	}
}

// New resolves cfg into a Scanner.
func New(cfg *config.Config, opts ...Option) (*Scanner, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	det, err := cfg.DetectorConfig()
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		cfg:      cfg,
		detector: det,
		logger:   slog.Default(),
		parallel: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Bands returns a copy of the resolved detector band layout.
func (s *Scanner) Bands() []bank.BandSpec {
	return s.detector.Clone().Bands
}

// Result pairs a file with its report or error.
type Result struct {
	Path   string
	Report *Report
	Err    error
}

// ScanFiles scans paths concurrently. Per-file failures are reported in the
// results; the returned error is only set when ctx is cancelled. Results keep
// the order of paths. progress, if non-nil, is called as each file finishes.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, progress func(Result)) ([]Result, error) {
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, path := range paths {
		g.Go(func() error {
			rep, err := s.ScanFile(ctx, path)
			results[i] = Result{Path: path, Report: rep, Err: err}
			if progress != nil {
				progress(results[i])
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// ScanFile decodes path, scans it and writes the enhanced copy when enabled.
func (s *Scanner) ScanFile(ctx context.Context, path string) (rep *Report, err error) {
	done := s.metrics.StartScan(ctx)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		done(status)
	}()

	log := s.logger.With("file", path)
	buf, err := audio.ReadFile(path)
	if err != nil {
		log.Error("read failed", "err", err)
		return nil, err
	}
	log.Debug("decoded",
		"sample_rate", buf.SampleRate,
		"channels", buf.NumChannels(),
		"bit_depth", buf.BitDepth,
		"duration", buf.Duration(),
	)

	var enhanced *audio.Buffer
	if s.write {
		enhanced = buf.Clone()
	}

	rep, err = s.scan(ctx, path, buf, enhanced)
	if err != nil {
		log.Error("scan failed", "err", err)
		return nil, err
	}

	if enhanced != nil {
		out := s.OutputPath(path)
		if err := audio.WriteFile(out, enhanced, s.cfg.Output.BitDepth); err != nil {
			log.Error("write failed", "output", out, "err", err)
			return rep, err
		}
		rep.OutputPath = out
		log.Info("wrote enhanced file", "output", out, "bypass", rep.Bypassed)
	}

	log.Info("scanned",
		"events", rep.TotalEvents(),
		"filtered", rep.Stats().Filtered,
		"rejected", rep.Stats().Rejected,
		"elapsed", rep.Elapsed,
	)
	return rep, nil
}

// Scan runs the detector over buf. When enhanced is non-nil it must have the
// same shape as buf and receives the processed output.
func (s *Scanner) Scan(ctx context.Context, name string, buf, enhanced *audio.Buffer) (*Report, error) {
	return s.scan(ctx, name, buf, enhanced)
}

// OutputPath returns where the enhanced copy of path is written.
func (s *Scanner) OutputPath(path string) string {
	dir := s.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+s.cfg.Output.Suffix+ext)
}

func (s *Scanner) scan(ctx context.Context, name string, buf, enhanced *audio.Buffer) (*Report, error) {
	start := time.Now()
	rate := float64(buf.SampleRate)
	if !core.ValidSampleRate(rate) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRate, buf.SampleRate)
	}
	if enhanced != nil && (enhanced.NumChannels() != buf.NumChannels() || enhanced.Frames() != buf.Frames()) {
		return nil, fmt.Errorf("scan: enhanced buffer shape %dx%d, want %dx%d",
			enhanced.NumChannels(), enhanced.Frames(), buf.NumChannels(), buf.Frames())
	}

	rep := &Report{
		Path:       name,
		SampleRate: buf.SampleRate,
		Frames:     buf.Frames(),
		Duration:   buf.Duration(),
		Preset:     s.cfg.Preset,
		Channels:   make([]ChannelReport, buf.NumChannels()),
		Bypassed:   s.cfg.Output.Bypass,
	}

	scans := make([]*channelScan, buf.NumChannels())
	for c := range scans {
		cs, err := s.newChannelScan(c, rate)
		if err != nil {
			return nil, err
		}
		scans[c] = cs
	}
	if len(scans) > 0 {
		rep.Threshold = scans[0].det.Threshold(float32(s.cfg.Sensitivity))
	}

	log := s.logger.With("file", name)
	g, ctx := errgroup.WithContext(ctx)
	for c, cs := range scans {
		g.Go(func() error {
			var out []float32
			if enhanced != nil {
				out = enhanced.Channels[c]
			}
			cr, err := cs.run(ctx, buf.Channels[c], out)
			if err != nil {
				return fmt.Errorf("channel %d: %w", c, err)
			}
			rep.Channels[c] = cr
			s.metrics.RecordChannel(ctx, name, c, cr.Stats)
			for _, e := range cr.Events {
				s.metrics.RecordEvent(ctx, e.Confidence)
				log.Debug("event",
					"channel", c,
					"time", e.Time,
					"confidence", e.Confidence,
					"threshold", e.Threshold,
					"energy", e.Energy,
				)
			}
			log.Debug("channel done",
				"channel", c,
				"events", len(cr.Events),
				"filtered", cr.Stats.Filtered,
				"rejected", cr.Stats.Rejected,
				"background", cr.Background,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.Elapsed = time.Since(start)
	return rep, nil
}
