// Package domain defines the core data types shared across the orchestrator.
package domain

import "time"

// Frequency categorizes how often a symptom occurs for a disease.
type Frequency string

const (
	FrequencyRare       Frequency = "rare"
	FrequencyOccasional Frequency = "occasional"
	FrequencyFrequent   Frequency = "frequent"
	FrequencyConstant   Frequency = "constant"
)

// Severity grades a disease.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Symptom is read-only reference data maintained by an external admin workflow.
type Symptom struct {
	SymptomID     string    `json:"symptom_id"`
	NameEN        string    `json:"name_en"`
	NameVN        string    `json:"name_vn,omitempty"`
	DescriptionEN string    `json:"description_en,omitempty"`
	DescriptionVN string    `json:"description_vn,omitempty"`
	Synonym       string    `json:"synonym,omitempty"`
	Frequency     Frequency `json:"frequency,omitempty"`
}

// Disease is read-only reference data maintained by an external admin workflow.
type Disease struct {
	DiseaseID      string   `json:"disease_id"`
	NameEN         string   `json:"name_en"`
	NameVN         string   `json:"name_vn,omitempty"`
	DescriptionEN  string   `json:"description_en,omitempty"`
	DescriptionVN  string   `json:"description_vn,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
}

// DiseaseSymptom is a many-to-many edge keyed by (DiseaseID, SymptomID).
// Weight is persisted but not consumed by ranking yet.
type DiseaseSymptom struct {
	DiseaseID string `json:"disease_id"`
	SymptomID string `json:"symptom_id"`
	Weight    int    `json:"weight"`
}

// DiseaseMatch pairs a disease with how many of the queried symptoms it covers.
type DiseaseMatch struct {
	Disease         Disease `json:"disease"`
	MatchedSymptoms int     `json:"matched_symptoms"`
}

// Conversation is the durable record backing a chat session.
type Conversation struct {
	ConversationID  string    `json:"conversation_id"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	LastMessageTime time.Time `json:"last_message_time"`
}

// Message is a single persisted chat message.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user, model
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
