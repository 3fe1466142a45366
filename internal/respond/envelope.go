// Package respond post-processes raw agent output into displayable
// message text: envelope unwrapping and citation injection.
package respond

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// TryUnwrapEnvelope detects the instruction/result envelope the agent
// sometimes emits in place of plain text and returns the inner result.
// The agent is known to emit badly escaped field contents (literal
// newlines inside string values), so the text is run through a JSON
// repair pass before decoding. Anything that does not parse as a JSON
// object carrying both an "instruction" and a string "result" field is
// not an envelope; the raw text is returned with ok=false.
func TryUnwrapEnvelope(raw string) (string, bool) {
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return raw, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return raw, false
	}

	if _, ok := obj["instruction"]; !ok {
		return raw, false
	}
	result, ok := obj["result"].(string)
	if !ok {
		return raw, false
	}
	return result, true
}
