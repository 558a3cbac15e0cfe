package engine

import (
	"fmt"
	"log/slog"

	"github.com/wdshin/Concuerror/internal/frontier"
	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/schedule"
)

// Policy chooses the next process to run. The driver calls it synchronously
// at every decision point it is not replaying.
type Policy func(ec *Context) (lid.LID, error)

// NewSearchPolicy returns the preemption-bounded search policy.
//
// The policy keeps running the last process while it can run. When it
// cannot, the smallest active LID runs. Every other active process is saved
// to the next generation of f as a deferred alternative, so round k explores
// the schedules that deviate from this default k times.
func NewSearchPolicy(f *frontier.Store) Policy {
	return searchPolicy(f.Save)
}

// NewReplayPolicy returns the default-choice policy without saving any
// alternative. It follows the same choices as NewSearchPolicy.
func NewReplayPolicy() Policy {
	return searchPolicy(nil)
}

// frontierSave saves alternatives to f. Alternatives f refuses as already
// seen are counted and logged at debug level.
func (e *Engine) frontierSave(f *frontier.Store, log *slog.Logger) func(schedule.Path) bool {
	return func(p schedule.Path) bool {
		if f.Save(p) {
			return true
		}
		e.metrics.RecordDuplicate()
		log.Debug("duplicate schedule dropped", "path", p.String())
		return false
	}
}

func searchPolicy(save func(schedule.Path) bool) Policy {
	return func(ec *Context) (lid.LID, error) {
		if ec.Active.Len() == 0 {
			return lid.None, fmt.Errorf("%w: no active process (path=%s)", ErrPolicyFault, ec.Path)
		}

		last, ok := ec.Path.Last()
		if !ok {
			// First decision: only the freshly spawned root can run.
			if ec.Active.Len() != 1 {
				return lid.None, fmt.Errorf("%w: %d active processes at the first decision", ErrPolicyFault, ec.Active.Len())
			}
			return ec.Active.Min(), nil
		}

		chosen := last
		if !ec.Active.Has(last) {
			chosen = ec.Active.Min()
		}

		if save != nil {
			for _, alt := range ec.Active.Sorted() {
				if alt != chosen {
					save(ec.Path.Extend(alt))
				}
			}
		}
		return chosen, nil
	}
}
