package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cwbudde/algo-stepdetect/dsp/filter/bank"
	"github.com/cwbudde/algo-stepdetect/internal/scan"
)

// DefaultMaxRows bounds the event table of one file.
const DefaultMaxRows = 20

// PrintReport renders one file's summary and event table. bands names the
// spectrum shares; maxRows <= 0 prints every event.
func PrintReport(w io.Writer, rep *scan.Report, bands []bank.BandSpec, maxRows int) {
	fmt.Fprintln(w, FileStyle.Render(rep.Path))

	st := rep.Stats()
	keyValue(w, "Format", fmt.Sprintf("%d Hz, %d ch, %s", rep.SampleRate, len(rep.Channels), rep.Duration.Round(time.Millisecond)))
	keyValue(w, "Preset", fmt.Sprintf("%s (threshold %.3f)", rep.Preset, rep.Threshold))
	keyValue(w, "Events", fmt.Sprintf("%d (%.1f/min)", rep.TotalEvents(), rep.Rate()))
	keyValue(w, "Filtered", fmt.Sprintf("%d", st.Filtered))
	if st.Rejected > 0 {
		keyValue(w, "Rejected", fmt.Sprintf("%d samples", st.Rejected))
	}
	if centroid, shares, ok := rep.MeanSpectrum(); ok {
		keyValue(w, "Centroid", fmt.Sprintf("%.0f Hz", centroid))
		keyValue(w, "Bands", formatShares(bands, shares))
	}
	if rep.OutputPath != "" {
		mode := "enhanced"
		if rep.Bypassed {
			mode = "bypass"
		}
		keyValue(w, "Output", fmt.Sprintf("%s (%s)", rep.OutputPath, mode))
	}
	keyValue(w, "Elapsed", rep.Elapsed.Round(time.Millisecond).String())

	events := rep.Events()
	if len(events) == 0 {
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  "+HeaderStyle.Render(fmt.Sprintf("%4s  %2s  %10s  %6s  %6s  %8s  %8s  %s",
		"#", "ch", "time", "conf", "thr", "energy", "centroid", "band")))

	shown := events
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for i, e := range shown {
		band := "-"
		if d := e.Spectrum.Dominant(); d >= 0 && d < len(bands) {
			band = bands[d].Name
		}
		fmt.Fprintf(w, "  %4d  %2d  %10s  %6.3f  %6.3f  %8.4f  %8.0f  %s\n",
			i+1, e.Channel, formatTime(e.Time.Seconds()), e.Confidence, e.Threshold, e.Energy, e.Spectrum.Centroid, band)
	}
	if rest := len(events) - len(shown); rest > 0 {
		fmt.Fprintln(w, "  "+KeyStyle.Render(fmt.Sprintf("… and %d more", rest)))
	}
	fmt.Fprintln(w)
}

// PrintSummary prints the totals over all scanned files and returns the
// number of failed files.
func PrintSummary(w io.Writer, results []scan.Result) int {
	var events, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		events += r.Report.TotalEvents()
	}
	fmt.Fprintln(w, TitleStyle.Render("Summary"))
	keyValue(w, "Files", fmt.Sprintf("%d scanned, %d failed", len(results)-failed, failed))
	keyValue(w, "Events", fmt.Sprintf("%d", events))
	return failed
}

func formatShares(bands []bank.BandSpec, shares []float64) string {
	parts := make([]string, 0, len(shares))
	for i, s := range shares {
		name := fmt.Sprintf("band%d", i)
		if i < len(bands) {
			name = bands[i].Name
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", name, 100*s))
	}
	return strings.Join(parts, ", ")
}

func formatTime(sec float64) string {
	m := int(sec) / 60
	return fmt.Sprintf("%d:%06.3f", m, sec-float64(60*m))
}
