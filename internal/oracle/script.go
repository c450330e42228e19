package oracle

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedOracle replays canned responses keyed by stage, in order. Tests use
// it to drive the curation stages without a live model.
type ScriptedOracle struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	calls     []Request
}

// NewScriptedOracle creates an empty scripted oracle.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

// Queue appends a canned response for the given stage.
func (s *ScriptedOracle) Queue(stage string, responses ...string) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[stage] = append(s.responses[stage], responses...)
	return s
}

// Fail makes every call for the given stage return err once queued responses
// are exhausted.
func (s *ScriptedOracle) Fail(stage string, err error) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[stage] = err
	return s
}

// Complete pops the next canned response for req.Stage.
func (s *ScriptedOracle) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)

	queue := s.responses[req.Stage]
	if len(queue) == 0 {
		if err, ok := s.errs[req.Stage]; ok {
			return "", err
		}
		return "", fmt.Errorf("scripted oracle: no response queued for stage %q", req.Stage)
	}

	next := queue[0]
	s.responses[req.Stage] = queue[1:]
	return next, nil
}

// Calls returns a copy of every request seen so far.
func (s *ScriptedOracle) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of calls made for one stage.
func (s *ScriptedOracle) CallCount(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Stage == stage {
			n++
		}
	}
	return n
}
