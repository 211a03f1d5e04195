package wgimage

import "fmt"

// BlurStage is a step of a two-pass blur.
type BlurStage uint8

const (
	// StageVertical convolves columns from the input into the intermediate.
	StageVertical BlurStage = iota
	// StageHorizontal convolves rows from the intermediate into the output.
	StageHorizontal
	// StageDone means both passes have been recorded.
	StageDone
)

// String returns the stage name.
func (s BlurStage) String() string {
	switch s {
	case StageVertical:
		return "vertical"
	case StageHorizontal:
		return "horizontal"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("BlurStage(%d)", uint8(s))
	}
}

// blurSequencer enforces vertical then horizontal, once each, per run.
type blurSequencer struct {
	next BlurStage
}

// advance records stage s. Any stage other than the expected one fails with
// ErrStageOrder and leaves the sequencer unchanged.
func (q *blurSequencer) advance(s BlurStage) error {
	if q.next == StageDone || s != q.next {
		return fmt.Errorf("%w: got %s, want %s", ErrStageOrder, s, q.next)
	}
	q.next++
	return nil
}

// done reports whether both stages have been recorded.
func (q *blurSequencer) done() bool { return q.next == StageDone }

// reset starts a new run.
func (q *blurSequencer) reset() { q.next = StageVertical }
