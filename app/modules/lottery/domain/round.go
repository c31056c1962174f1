package lotterydomain

import "time"

// RoundStateMachine owns the phase and parameters of the live round.
type RoundStateMachine struct {
	round Round
}

// NewRoundStateMachine returns a machine with round 1 opened.
func NewRoundStateMachine(entryFee Amount, drawTime time.Time) (RoundStateMachine, error) {
	if err := validateRoundParams(entryFee, drawTime); err != nil {
		return RoundStateMachine{}, err
	}
	return RoundStateMachine{round: Round{
		Number:   1,
		EntryFee: entryFee,
		DrawTime: drawTime.UTC(),
		Phase:    PhaseOpened,
	}}, nil
}

func restoreRoundStateMachine(r Round) RoundStateMachine {
	return RoundStateMachine{round: r}
}

func validateRoundParams(entryFee Amount, drawTime time.Time) error {
	if entryFee.IsZero() {
		return ErrInvalidEntryFee
	}
	if drawTime.IsZero() {
		return ErrInvalidDrawTime
	}
	return nil
}

func (m *RoundStateMachine) Round() Round { return m.round }

func (m *RoundStateMachine) Phase() Phase { return m.round.Phase }

// Require fails with ErrInvalidState unless the round is in phase p.
func (m *RoundStateMachine) Require(p Phase) error {
	if m.round.Phase != p {
		return ErrInvalidState
	}
	return nil
}

// Finish moves Opened to Finished.
func (m *RoundStateMachine) Finish() error {
	if err := m.Require(PhaseOpened); err != nil {
		return err
	}
	m.round.Phase = PhaseFinished
	return nil
}

// Reopen replaces the round parameters and moves Finished to Opened.
func (m *RoundStateMachine) Reopen(entryFee Amount, drawTime time.Time) error {
	if err := m.Require(PhaseFinished); err != nil {
		return err
	}
	if err := validateRoundParams(entryFee, drawTime); err != nil {
		return err
	}
	m.round = Round{
		Number:   m.round.Number + 1,
		EntryFee: entryFee,
		DrawTime: drawTime.UTC(),
		Phase:    PhaseOpened,
	}
	return nil
}
