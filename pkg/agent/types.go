package agent

import "encoding/json"

// S3Location points at the source document backing a retrieved reference.
type S3Location struct {
	URI string `json:"uri"`
}

// Location is the source location of a retrieved reference.
type Location struct {
	Type       string     `json:"type,omitempty"`
	S3Location S3Location `json:"s3Location"`
}

// RetrievedReference is one knowledge-base chunk the agent grounded its
// answer on.
type RetrievedReference struct {
	Content  json.RawMessage `json:"content,omitempty"`
	Location Location        `json:"location"`
}

// Citation maps a span of generated text to the references that support
// it. GeneratedResponsePart is kept opaque; only the reference locations
// are interpreted client-side.
type Citation struct {
	GeneratedResponsePart json.RawMessage      `json:"generatedResponsePart,omitempty"`
	RetrievedReferences   []RetrievedReference `json:"retrievedReferences"`
}

// RawTrace is the agent's execution trace as delivered on the wire: a
// mapping from trace kind (e.g. "orchestrationTrace") to that kind's
// event list in emission order. Events are loosely structured.
type RawTrace map[string][]map[string]any

// Response is a complete agent answer for one turn.
type Response struct {
	OutputText string     `json:"outputText"`
	Citations  []Citation `json:"citations"`
	Trace      RawTrace   `json:"trace"`
}
