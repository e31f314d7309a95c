package attendance

import (
	"context"

	"github.com/looplab/fsm"
)

const (
	stateOut  = "out"
	stateIn   = "in"
	eventScan = "scan"
)

// NextAction derives the action a scan records from the latest action of that (date, barcode).
// An empty last action means no prior event, which starts the learner outside.
func NextAction(last Action) Action {
	initial := stateOut
	if last == ActionIn {
		initial = stateIn
	}
	machine := fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventScan, Src: []string{stateOut}, Dst: stateIn},
			{Name: eventScan, Src: []string{stateIn}, Dst: stateOut},
		},
		fsm.Callbacks{},
	)
	// Both states define a scan transition, so Event cannot fail here.
	_ = machine.Event(context.Background(), eventScan)
	if machine.Current() == stateIn {
		return ActionIn
	}
	return ActionOut
}
