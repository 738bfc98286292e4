package core

const (
	// DefaultSampleRate is used when no usable rate is supplied.
	DefaultSampleRate = 44100.0
	// DefaultBlockSize is the block size hint used when none is supplied.
	DefaultBlockSize = 512
	// MaxSampleRate bounds accepted sample rates.
	MaxSampleRate = 768000.0
)

// ProcessorConfig defines common DSP processing settings.
type ProcessorConfig struct {
	SampleRate float64
	BlockSize  int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns the streaming defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: DefaultSampleRate,
		BlockSize:  DefaultBlockSize,
	}
}

// ValidSampleRate reports whether sampleRate is positive, finite and at most
// MaxSampleRate.
func ValidSampleRate(sampleRate float64) bool {
	return IsFinite(sampleRate) && sampleRate > 0 && sampleRate <= MaxSampleRate
}

// WithSampleRate sets the processing sample rate. Unusable rates are ignored.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if ValidSampleRate(sampleRate) {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the processing block size.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
