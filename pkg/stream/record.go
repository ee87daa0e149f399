// Package stream decodes "data: "-framed generation events into records and
// classifies each one into the reasoning or content channel.
package stream

// Kind identifies the channel a record is routed to.
type Kind int

const (
	// Content is the visible generated result. Unknown event types land here.
	Content Kind = iota

	// Reasoning is the model's internal reasoning trace.
	Reasoning
)

// ReasoningType is the wire "type" value that selects the reasoning channel.
const ReasoningType = "reasoning"

// ContentType is the wire "type" value the generation server uses for
// content events. Any value other than ReasoningType classifies as Content.
const ContentType = "content"

func (k Kind) String() string {
	switch k {
	case Reasoning:
		return ReasoningType
	default:
		return ContentType
	}
}

// Payload is the structured object carried after the frame marker.
type Payload struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Record is one decoded and classified event.
type Record struct {
	Kind Kind
	Text string
}

// Classify maps a decoded payload to a Record. Only the literal reasoning
// marker selects Reasoning; absent or unknown types are Content.
func Classify(p Payload) Record {
	if p.Type == ReasoningType {
		return Record{Kind: Reasoning, Text: p.Text}
	}
	return Record{Kind: Content, Text: p.Text}
}
