package music

// Equal-tempered note frequencies in Hz (A4 = 440).
const (
	C1  = 32.70
	C3  = 130.81
	A3  = 220.00
	C4  = 261.63
	D4  = 293.66
	E4  = 329.63
	FS4 = 369.99
	G4  = 392.00
	GS4 = 415.30
	A4  = 440.00
	AS4 = 466.16
)

var (
	majorPentatonic = []float64{C4, D4, E4, G4, A4}
	minorPentatonic = []float64{A3, C4, D4, E4, G4}
	wholeTone       = []float64{C4, D4, E4, FS4, GS4, AS4}
)
