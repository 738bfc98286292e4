// Package bank provides a streaming band-energy filter bank.
//
// Each band is a second-order recursive filter
//
//	y[n] = A0*x[n] + A1*x[n-1] + A2*x[n-2] + A3*y[n-1] + A4*y[n-2]
//
// whose squared output feeds a fixed-length ring. The band energy reported
// for every sample is the RMS over that ring, maintained with a running sum.
// With A4 = 0 the recursion reduces to the three-tap single-pole form used by
// legacy coefficient tables; [DesignBandpass] fills all five taps with a
// constant 0 dB peak band-pass so each band is genuinely band-limited.
//
// Coefficients are either designed from the band edges or supplied
// explicitly per band. All storage is allocated in [New] or
// [Bank.Configure]; [Bank.Update] does not allocate.
//
// Basic usage:
//
//	b, err := bank.New(bank.DefaultBands(), 44100, 1323)
//	if err != nil {
//	    return err
//	}
//	for _, x := range samples {
//	    energies := b.Update(x)
//	    _ = energies[1] // RMS of the 150-300 Hz band
//	}
package bank
