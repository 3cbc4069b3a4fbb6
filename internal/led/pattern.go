package led

import (
	"fmt"
	"time"
)

// Pattern names an animation preset.
type Pattern string

// Available presets.
const (
	PatternTrailing Pattern = "trailing"
	PatternBlinking Pattern = "blinking"
	PatternPong     Pattern = "pong"
	PatternPingPong Pattern = "pingpong"
)

var allPatterns = []Pattern{PatternTrailing, PatternBlinking, PatternPong, PatternPingPong}

// Patterns returns the names of every preset.
func Patterns() []string {
	names := make([]string, len(allPatterns))
	for i, p := range allPatterns {
		names[i] = string(p)
	}
	return names
}

// ParsePattern validates a preset name.
func ParsePattern(name string) (Pattern, error) {
	for _, p := range allPatterns {
		if string(p) == name {
			return p, nil
		}
	}
	return "", NewError(ErrCodeInvalidPattern, fmt.Sprintf("unknown preset %q", name), ErrUnknownPattern)
}

// Delay returns the pause between two steps of p for a base tick period.
// blinking never pauses.
func (p Pattern) Delay(period time.Duration) time.Duration {
	if p == PatternBlinking {
		return 0
	}
	return period
}

// Op is the change applied to one output.
type Op uint8

// Mutation operations.
const (
	OpOn Op = iota + 1
	OpOff
	OpToggle
)

func (o Op) String() string {
	switch o {
	case OpOn:
		return "on"
	case OpOff:
		return "off"
	case OpToggle:
		return "toggle"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Mutation is an incremental change to one output of the bank.
type Mutation struct {
	Index int
	Op    Op
}

// Sequence produces the mutations of a pattern one step at a time.
// Step 0 is the first frame applied after the bank has been forced off.
type Sequence struct {
	pattern Pattern
	step    int
	gen     generator
}

type generator interface {
	next(step int) []Mutation
}

// NewSequence starts a fresh run of p over a bank of n outputs.
func NewSequence(p Pattern, n int) *Sequence {
	var gen generator
	switch {
	case n <= 0:
		gen = emptyGen{}
	case p == PatternPong:
		gen = &pongGen{n: n, forward: true}
	case p == PatternPingPong:
		gen = &pingPongGen{n: n, a: 0, b: n - 1, forward: true}
	default:
		gen = cycleGen{n: n}
	}
	return &Sequence{pattern: p, gen: gen}
}

// Pattern returns the pattern being generated.
func (s *Sequence) Pattern() Pattern {
	return s.pattern
}

// Step returns the index of the step the next call to Next produces.
func (s *Sequence) Step() int {
	return s.step
}

// Next returns the mutations of the current step and advances.
func (s *Sequence) Next() []Mutation {
	m := s.gen.next(s.step)
	s.step++
	return m
}

// Step returns the mutations pattern p applies at step k on a bank of n outputs.
// It replays the sequence from the start, so the result depends only on its arguments.
func Step(p Pattern, n, k int) []Mutation {
	seq := NewSequence(p, n)
	for range k {
		seq.Next()
	}
	return seq.Next()
}

type emptyGen struct{}

func (emptyGen) next(int) []Mutation { return nil }

// cycleGen toggles one output per step, wrapping after the last index.
// trailing and blinking share it; they differ only in Delay.
type cycleGen struct {
	n int
}

func (g cycleGen) next(step int) []Mutation {
	return []Mutation{{Index: step % g.n, Op: OpToggle}}
}

// pongGen bounces a single lit output between both ends of the bank.
type pongGen struct {
	n       int
	index   int
	forward bool
}

func (g *pongGen) next(step int) []Mutation {
	if step == 0 {
		return []Mutation{{Index: 0, Op: OpOn}}
	}

	if g.forward && g.index+1 >= g.n {
		g.forward = false
	} else if !g.forward && g.index-1 < 0 {
		g.forward = true
	}

	next := g.index - 1
	if g.forward {
		next = g.index + 1
	}
	// A single-output bank has nowhere to move.
	if next < 0 || next >= g.n {
		return nil
	}

	m := []Mutation{{Index: g.index, Op: OpOff}, {Index: next, Op: OpOn}}
	g.index = next
	return m
}

// pingPongGen moves two lit outputs from the ends toward the middle and back.
type pingPongGen struct {
	n       int
	a, b    int
	forward bool
}

func (g *pingPongGen) next(step int) []Mutation {
	if step == 0 {
		return []Mutation{{Index: g.a, Op: OpOn}, {Index: g.b, Op: OpOn}}
	}

	// The midpoint uses real division: on odd banks the pair meets on the
	// centre output before turning around.
	if g.forward && float64(g.a+1) >= float64(g.n)/2 {
		g.forward = false
	} else if !g.forward && g.a-1 < 0 {
		g.forward = true
	}

	nextA, nextB := g.a-1, g.b+1
	if g.forward {
		nextA, nextB = g.a+1, g.b-1
	}
	if nextA < 0 || nextA >= g.n || nextB < 0 || nextB >= g.n {
		return nil
	}

	m := []Mutation{
		{Index: g.a, Op: OpOff},
		{Index: g.b, Op: OpOff},
		{Index: nextA, Op: OpOn},
		{Index: nextB, Op: OpOn},
	}
	g.a, g.b = nextA, nextB
	return m
}
