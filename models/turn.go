package models

// Chat-platform (WhatsApp-style) integration contract for the /turn endpoint.

// TurnMessage is one message in the platform's transcript format. Direction
// is "inbound" (patient) or "outbound" (agent).
type TurnMessage struct {
	Direction string `json:"direction" binding:"required,oneof=inbound outbound"`
	Text      string `json:"text" binding:"required"`
}

// TurnRequest is the context-variant request body for /turn.
type TurnRequest struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []TurnMessage `json:"messages" binding:"required,min=1,dive"`
	PatientProfile string        `json:"patient_profile"`
}

// ContextObject is one entry of the platform's context panel.
type ContextObject struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Table map[string]string `json:"table,omitempty"`
	Items []string          `json:"items,omitempty"`
}

// SuggestedResponse is a ranked reply candidate for the agent console.
type SuggestedResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TurnResponse is the context-variant response for /turn.
type TurnResponse struct {
	ConversationID     string              `json:"conversation_id,omitempty"`
	ContextObjects     []ContextObject     `json:"context_objects"`
	SuggestedResponses []SuggestedResponse `json:"suggested_responses"`
}

// HandshakeResponse is the fixed capability descriptor returned when the
// platform probes /turn?handshake=true.
type HandshakeResponse struct {
	ProtocolVersion    string   `json:"protocol_version"`
	ContextObjectTypes []string `json:"context_object_types"`
	SuggestedResponses bool     `json:"suggested_responses"`
}
