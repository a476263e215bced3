package service

import (
	"context"

	"webfaq-backend/models"
)

// Chat-platform adapter behind /turn. It translates the platform's
// inbound/outbound transcript into a telehealth agent invocation and
// projects the result into the platform's context-object and
// suggested-response contract.

const (
	turnProtocolVersion = "1.0"

	contextTypePatientInfo    = "patient_info"
	contextTypeMedicalContext = "medical_context"

	// Fixed confidence schedule: the grounded medical response always ranks
	// first, the disclaimer second.
	primaryResponseConfidence    = 0.9
	disclaimerResponseConfidence = 0.5
)

// TurnService maps chat-platform turns onto the telehealth agent.
type TurnService struct {
	telehealth *TelehealthService
}

// NewTurnService creates a new chat-platform adapter.
func NewTurnService(telehealth *TelehealthService) *TurnService {
	return &TurnService{telehealth: telehealth}
}

// Handshake returns the fixed capability descriptor.
func (s *TurnService) Handshake() models.HandshakeResponse {
	return models.HandshakeResponse{
		ProtocolVersion:    turnProtocolVersion,
		ContextObjectTypes: []string{contextTypePatientInfo, contextTypeMedicalContext},
		SuggestedResponses: true,
	}
}

// ProcessTurn handles one context-variant turn.
func (s *TurnService) ProcessTurn(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error) {
	agentReq := models.TelehealthRequest{
		Messages: mapTurnMessages(req.Messages),
		Profile:  req.PatientProfile,
	}

	result, err := s.telehealth.Process(ctx, agentReq)
	if err != nil {
		return nil, err
	}

	profile := ParseProfile(req.PatientProfile)

	return &models.TurnResponse{
		ConversationID:     req.ConversationID,
		ContextObjects:     buildContextObjects(profile, result.Sources),
		SuggestedResponses: buildSuggestedResponses(result.Response),
	}, nil
}

// mapTurnMessages converts platform direction tags to conversation roles:
// inbound messages come from the patient, outbound from the agent.
func mapTurnMessages(messages []models.TurnMessage) []models.Message {
	mapped := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		role := models.RoleUser
		if m.Direction == "outbound" {
			role = models.RoleAssistant
		}
		mapped = append(mapped, models.Message{Role: role, Content: m.Text})
	}
	return mapped
}

func buildContextObjects(profile models.PatientProfile, sources []models.Source) []models.ContextObject {
	objects := make([]models.ContextObject, 0, 2)

	table := make(map[string]string)
	if profile.Name != "" {
		table["name"] = profile.Name
	}
	if profile.Location != "" {
		table["location"] = profile.Location
	}
	if profile.Language != "" {
		table["language"] = profile.Language
	}
	if profile.Category != "" {
		table["category"] = profile.Category
	}
	if profile.History != "" {
		table["history"] = profile.History
	}
	if len(table) > 0 {
		objects = append(objects, models.ContextObject{
			Type:  contextTypePatientInfo,
			Title: "Patient Information",
			Table: table,
		})
	}

	items := make([]string, 0, len(sources))
	for _, src := range sources {
		items = append(items, src.Title+" ("+src.URL+")")
	}
	objects = append(objects, models.ContextObject{
		Type:  contextTypeMedicalContext,
		Title: "Medical Context",
		Items: items,
	})

	return objects
}

func buildSuggestedResponses(response string) []models.SuggestedResponse {
	return []models.SuggestedResponse{
		{Text: response, Confidence: primaryResponseConfidence},
		{Text: responseDisclaimer, Confidence: disclaimerResponseConfidence},
	}
}
