package navigation

// zoomSteps is the tap cycle for one zoom direction; the step after the last
// wraps back to zero.
var zoomSteps = []int{0, 1, 2, 4, 8}

// ZoomCycler holds the tap-to-speed state of both zoom directions.
type ZoomCycler struct {
	in, out int
}

// Tap advances the speed of one direction. A tap against an active opposite
// direction stops both instead.
func (z *ZoomCycler) Tap(in bool) {
	mine, other := &z.in, &z.out
	if !in {
		mine, other = other, mine
	}
	if *other != 0 {
		z.in, z.out = 0, 0
		return
	}
	*mine = nextStep(*mine)
}

// Speeds returns the current in and out speeds.
func (z *ZoomCycler) Speeds() (in, out int) {
	return z.in, z.out
}

// Net is the signed speed, positive for zooming in.
func (z *ZoomCycler) Net() int {
	return z.in - z.out
}

// Reset stops zooming.
func (z *ZoomCycler) Reset() {
	z.in, z.out = 0, 0
}

func nextStep(v int) int {
	for i, s := range zoomSteps {
		if s == v {
			return zoomSteps[(i+1)%len(zoomSteps)]
		}
	}
	return 0
}
