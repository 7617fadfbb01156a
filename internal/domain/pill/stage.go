package pill

import (
	"fmt"
	"strings"
)

// Stage is a step of the identification pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageResolving  Stage = "resolving"
	StageCacheHit   Stage = "cache_hit"
	StageCacheMiss  Stage = "cache_miss"
	StageFetching   Stage = "fetching"
	StageCaching    Stage = "caching"
	StageExplaining Stage = "explaining"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// transitions lists the legal successors of each stage. Fetching may lead
// straight to Explaining on the correction path, which bypasses the cache.
var transitions = map[Stage][]Stage{
	StageReceived:   {StageResolving, StageFailed},
	StageResolving:  {StageCacheHit, StageCacheMiss, StageFetching, StageFailed},
	StageCacheHit:   {StageExplaining, StageDone},
	StageCacheMiss:  {StageFetching, StageCacheHit, StageFailed},
	StageFetching:   {StageCaching, StageExplaining, StageFailed},
	StageCaching:    {StageExplaining, StageDone},
	StageExplaining: {StageDone, StageFailed},
}

// CanTransition reports whether to may follow from.
func CanTransition(from, to Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends a request.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// Trace records the stages one request passed through. The zero value is
// not usable; call NewTrace.
type Trace struct {
	stages []Stage
	reason string
}

// NewTrace starts a trace at StageReceived.
func NewTrace() *Trace {
	return &Trace{stages: []Stage{StageReceived}}
}

// Current returns the latest stage.
func (t *Trace) Current() Stage {
	return t.stages[len(t.stages)-1]
}

// Advance moves to the next stage, rejecting illegal transitions.
func (t *Trace) Advance(to Stage) error {
	from := t.Current()
	if !CanTransition(from, to) {
		return fmt.Errorf("pill: illegal stage transition %s -> %s", from, to)
	}
	t.stages = append(t.stages, to)
	return nil
}

// Fail moves to StageFailed with reason. Failing an already terminal trace
// is a no-op.
func (t *Trace) Fail(reason string) {
	if t.Current().IsTerminal() {
		return
	}
	t.stages = append(t.stages, StageFailed)
	t.reason = reason
}

// Stages returns a copy of the visited stages.
func (t *Trace) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Reason is the failure reason, empty unless failed.
func (t *Trace) Reason() string { return t.reason }

func (t *Trace) String() string {
	parts := make([]string, len(t.stages))
	for i, s := range t.stages {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

//Personal.AI order the ending
