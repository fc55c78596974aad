package ramp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
)

// HandlerFunc runs one phase. It receives a private copy of the state and returns either the
// same phase (still waiting), the successor phase, or an error for the engine to classify.
type HandlerFunc func(ctx context.Context, state *model.RampState) (*model.RampState, error)

// DispatchTable maps a flow family and a phase to its handler.
type DispatchTable map[model.FlowFamily]map[model.Phase]HandlerFunc

func (t DispatchTable) Lookup(flowType model.FlowType, phase model.Phase) (HandlerFunc, error) {
	family := flowType.Family()
	handler, ok := t[family][phase]
	if !ok || handler == nil {
		return nil, fmt.Errorf("%w: family %q phase %q", ErrUnknownPhase, family, phase)
	}
	return handler, nil
}

// Validate reports every non-terminal phase of every flow type that has no handler.
func (t DispatchTable) Validate() error {
	var missing []string
	for _, flowType := range model.FlowTypes() {
		for _, phase := range flowType.Phases() {
			if phase.IsTerminal() {
				continue
			}
			if _, err := t.Lookup(flowType, phase); err != nil {
				missing = append(missing, fmt.Sprintf("%s/%s", flowType, phase))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrUnknownPhase, strings.Join(missing, ", "))
	}
	return nil
}
