// Package trace reconstructs the agent's phase-grouped execution trace
// from the raw trace mapping delivered with each response.
package trace

// Phase labels in display order. The agent reports trace data for three
// fixed execution stages.
const (
	PhasePreProcessing  = "Pre-Processing"
	PhaseOrchestration  = "Orchestration"
	PhasePostProcessing = "Post-Processing"
)

// PhaseOrder is the fixed display order of phases. Step numbers run
// globally across phases in this order.
var PhaseOrder = []string{
	PhasePreProcessing,
	PhaseOrchestration,
	PhasePostProcessing,
}

// phaseTraceKinds maps each phase to the trace kinds that belong to it,
// in the order they are scanned.
var phaseTraceKinds = map[string][]string{
	PhasePreProcessing:  {"preGuardrailTrace", "preProcessingTrace"},
	PhaseOrchestration:  {"orchestrationTrace"},
	PhasePostProcessing: {"postProcessingTrace", "postGuardrailTrace"},
}

// traceKindInfoFields maps a trace kind to the ordered list of info-type
// sub-object fields that may carry the event's traceId. The first field
// present in an event wins. Kinds with no entry (the guardrail traces)
// carry a top-level traceId instead.
var traceKindInfoFields = map[string][]string{
	"preProcessingTrace":  {"modelInvocationInput", "modelInvocationOutput"},
	"orchestrationTrace":  {"invocationInput", "modelInvocationInput", "modelInvocationOutput", "observation", "rationale"},
	"postProcessingTrace": {"modelInvocationInput", "modelInvocationOutput", "observation"},
}
