package trace

import "github.com/user/bedrockchat/pkg/agent"

// Step is a group of trace events sharing a traceId, numbered for
// display. Numbers continue across phases; they never restart at 1
// within a response.
type Step struct {
	Number  int              `json:"number"`
	TraceID string           `json:"trace_id"`
	Events  []map[string]any `json:"events"`
}

// PhaseTrace is the reconstructed trace for one phase. HasTrace is false
// when none of the phase's trace kinds appeared in the raw mapping, in
// which case the phase renders as "no trace" rather than an empty list.
type PhaseTrace struct {
	Phase    string `json:"phase"`
	HasTrace bool   `json:"has_trace"`
	Steps    []Step `json:"steps"`
}

// Summary is the full step-grouped trace for one agent response, ordered
// for direct display.
type Summary struct {
	Phases     []PhaseTrace `json:"phases"`
	TotalSteps int          `json:"total_steps"`
}

// Aggregate groups the raw trace mapping into ordered, globally numbered
// steps per phase.
func Aggregate(raw agent.RawTrace) *Summary {
	summary := &Summary{Phases: make([]PhaseTrace, 0, len(PhaseOrder))}

	step := 0
	for _, phase := range PhaseOrder {
		pt := PhaseTrace{Phase: phase}
		for _, kind := range phaseTraceKinds[phase] {
			events, ok := raw[kind]
			if !ok {
				continue
			}
			pt.HasTrace = true
			for _, g := range groupByTraceID(kind, events) {
				step++
				pt.Steps = append(pt.Steps, Step{
					Number:  step,
					TraceID: g.id,
					Events:  g.events,
				})
			}
		}
		summary.Phases = append(summary.Phases, pt)
	}

	summary.TotalSteps = step
	return summary
}

type group struct {
	id     string
	events []map[string]any
}

// groupByTraceID buckets a trace kind's events by their traceId,
// preserving first-seen order. Events whose traceId cannot be resolved
// are dropped; the rest of the kind still renders.
func groupByTraceID(kind string, events []map[string]any) []group {
	var groups []group
	index := make(map[string]int)

	add := func(id string, event map[string]any) {
		if i, ok := index[id]; ok {
			groups[i].events = append(groups[i].events, event)
			return
		}
		index[id] = len(groups)
		groups = append(groups, group{id: id, events: []map[string]any{event}})
	}

	infoFields, registered := traceKindInfoFields[kind]
	for _, event := range events {
		if registered {
			for _, field := range infoFields {
				sub, present := event[field]
				if !present {
					continue
				}
				// First present field wins, even when it carries no
				// usable traceId. The whole event is grouped, not the
				// sub-object.
				if info, ok := sub.(map[string]any); ok {
					if id, ok := info["traceId"].(string); ok {
						add(id, event)
					}
				}
				break
			}
			continue
		}

		// Kinds with no registered info fields carry a top-level
		// traceId; the event is wrapped so the kind label survives.
		if id, ok := event["traceId"].(string); ok {
			add(id, map[string]any{kind: event})
		}
	}

	return groups
}
