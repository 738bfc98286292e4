package footstep_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stepdetect/dsp/footstep"
)

func ExampleDetector() {
	d, err := footstep.New(footstep.DefaultConfig())
	if err != nil {
		panic(err)
	}
	if err := d.Prepare(44100, 512); err != nil {
		panic(err)
	}

	// 50 ms Hann-shaped 212 Hz burst after a short silence.
	const burst = 2205
	hits := 0
	for i := 0; i < 8000; i++ {
		var x float64
		if n := i - 1000; n >= 0 && n < burst {
			env := 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/float64(burst-1))
			x = 0.1155 * env * math.Sin(2*math.Pi*212*float64(n)/44100)
		}
		if d.Detect(float32(x), 0.5) {
			hits++
		}
	}

	fmt.Printf("detections=%d cooldown=%d samples\n", hits, d.CooldownSamples())
	// Output:
	// detections=1 cooldown=6615 samples
}

func ExamplePreset() {
	for _, name := range footstep.Presets() {
		cfg, _ := footstep.Preset(name)
		d, _ := footstep.New(cfg)
		fmt.Printf("%-12s threshold(0.5)=%.3f\n", name, d.Threshold(0.5))
	}
	// Output:
	// balanced     threshold(0.5)=0.600
	// conservative threshold(0.5)=0.700
	// permissive   threshold(0.5)=0.400
}
