// README: Pure stop-by-stop delivery state machine for multi-stop orders.
package cmr

import "errors"

var (
	ErrBadStopCount   = errors.New("stop count must be at least 1")
	ErrWrongStage     = errors.New("operation not valid in current stage")
	ErrIncompleteStop = errors.New("stop needs a consignee signature or a not-home photo")
)

type Stage string

const (
	StagePickup   Stage = "pickup"
	StageDelivery Stage = "delivery"
	StageDone     Stage = "done"
)

// Sequencer walks a delivery with Total stops through pickup, one delivery
// confirmation per stop, and completion. StopIndex is 1-based and always
// points at the next stop awaiting confirmation.
type Sequencer struct {
	Total     int
	StopIndex int
	Stage     Stage
}

func NewSequencer(total int) (*Sequencer, error) {
	if total < 1 {
		return nil, ErrBadStopCount
	}
	return &Sequencer{Total: total, StopIndex: 1, Stage: StagePickup}, nil
}

// StopProof is what the driver submits for one stop: a consignee signature,
// or a not-home flag with a mandatory photo.
type StopProof struct {
	ConsigneeSigner string
	NotHome         bool
	PhotoRef        string
}

func (p StopProof) valid() bool {
	if p.NotHome {
		return p.PhotoRef != ""
	}
	return p.ConsigneeSigner != ""
}

// SignPickup completes the pickup stage and opens the first stop.
func (s *Sequencer) SignPickup() error {
	if s.Stage != StagePickup {
		return ErrWrongStage
	}
	s.Stage = StageDelivery
	return nil
}

// SubmitStop confirms the current stop. Invalid proofs are rejected before
// any state moves. The returned flag is true when this was the last stop and
// the delivery as a whole is finished.
func (s *Sequencer) SubmitStop(proof StopProof) (bool, error) {
	if s.Stage != StageDelivery {
		return false, ErrWrongStage
	}
	if !proof.valid() {
		return false, ErrIncompleteStop
	}
	if s.StopIndex < s.Total {
		s.StopIndex++
		return false, nil
	}
	s.Stage = StageDone
	return true, nil
}

// Done reports whether every stop has been confirmed.
func (s *Sequencer) Done() bool {
	return s.Stage == StageDone
}

// Remaining counts the stops still awaiting confirmation.
func (s *Sequencer) Remaining() int {
	if s.Stage == StageDone {
		return 0
	}
	return s.Total - s.StopIndex + 1
}
