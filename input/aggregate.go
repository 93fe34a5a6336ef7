package input

// ButtonState is the state of one button for one Poll.
type ButtonState struct {
	Down     bool // Held now
	Pressed  bool // Went down since the previous Poll
	Released bool // Went up since the previous Poll
}

// EncoderState is the state of the rotary encoder for one Poll.
type EncoderState struct {
	Count  int32 // Detents since start, wrapping
	Delta  int32 // Detents since the previous Poll
	Button ButtonState
}

// State is the input snapshot handed to the application once per iteration.
type State struct {
	Encoder EncoderState
	Buttons [3]ButtonState
}

// Matrix position of each logical button.
const (
	levelButton0 = 1
	levelButton1 = 0
	levelButton2 = 2
	levelEncoder = 3
)

// Aggregator turns a Capture into State values.
//
// It is not safe for concurrent use; a single main loop owns it.
type Aggregator struct {
	// Invert negates Delta, for encoders wired the other way around.
	Invert bool

	c      *Capture
	count  int32
	levels [Levels]bool
}

// NewAggregator returns an Aggregator reading c. The first Poll reports the
// detents accumulated so far as its Delta.
func NewAggregator(c *Capture) *Aggregator {
	return &Aggregator{c: c}
}

// Poll samples the Capture and returns the edges since the previous call.
func (a *Aggregator) Poll() State {
	count := a.c.Count() / 4
	d := delta(a.count, count)
	if a.Invert {
		d = -d
	}
	a.count = count

	var b [Levels]ButtonState
	for i := range b {
		down := a.c.Level(i)
		b[i] = ButtonState{
			Down:     down,
			Pressed:  down && !a.levels[i],
			Released: !down && a.levels[i],
		}
		a.levels[i] = down
	}

	return State{
		Encoder: EncoderState{
			Count:  count,
			Delta:  d,
			Button: b[levelEncoder],
		},
		Buttons: [3]ButtonState{b[levelButton0], b[levelButton1], b[levelButton2]},
	}
}

// delta returns cur-prev, read either directly or across a wrap of the
// counter, whichever is smaller in magnitude.
func delta(prev, cur int32) int32 {
	direct := int64(cur) - int64(prev)
	wrapped := direct - 1<<32
	if direct < 0 {
		wrapped = direct + 1<<32
	}
	if abs(direct) < abs(wrapped) || abs(direct) == abs(wrapped) && direct < 0 {
		return int32(direct)
	}
	return int32(wrapped)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
