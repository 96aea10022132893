package models

import (
	"time"
)

// Saga outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Step actions
const (
	ActionCreate     = "create"
	ActionCompensate = "compensate"
)

// SagaRun is the diagnostics record of one composite-agent creation.
type SagaRun struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ModalID        string     `gorm:"type:varchar(64);index" json:"modal_id"`
	BusinessID     int        `gorm:"index" json:"business_id"`
	AgentName      string     `gorm:"type:varchar(255)" json:"agent_name"`
	Outcome        string     `gorm:"type:varchar(20);index" json:"outcome"`
	FailedStage    string     `gorm:"type:varchar(20)" json:"failed_stage,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	Steps          []SagaStep `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE;" json:"steps"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     time.Time  `json:"finished_at"`
	DurationMillis int64      `json:"duration_ms"`
}

func (SagaRun) TableName() string {
	return "saga_runs"
}

// SagaStep is one gateway call made by a run, in call order.
type SagaStep struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RunID        string    `gorm:"index;type:varchar(36)" json:"run_id"`
	Seq          int       `json:"seq"`
	Kind         string    `gorm:"type:varchar(20)" json:"kind"`
	Action       string    `gorm:"type:varchar(20)" json:"action"`
	ResourceID   int       `json:"resource_id"`
	Success      bool      `json:"success"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SagaStep) TableName() string {
	return "saga_steps"
}

// CompositeAgent remembers the four resources a successful run assembled.
type CompositeAgent struct {
	AgentID          int       `gorm:"primaryKey;autoIncrement:false" json:"agent_id"`
	RunID            string    `gorm:"type:varchar(36)" json:"run_id"`
	BusinessID       int       `gorm:"index" json:"business_id"`
	Name             string    `gorm:"type:varchar(255)" json:"name"`
	FlowID           int       `json:"flow_id"`
	ConnectionWAID   *int      `gorm:"index" json:"connection_wa_id"`
	ConnectionIgID   *int      `gorm:"index" json:"connection_ig_id"`
	ReusedConnection bool      `json:"reused_connection"`
	ChatbotID        *int      `gorm:"index" json:"chatbot_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CompositeAgent) TableName() string {
	return "composite_agents"
}

// ConnectionStatus is the last status-connection seen for a connection.
type ConnectionStatus struct {
	ConnectionID int       `gorm:"primaryKey;autoIncrement:false" json:"connection_id"`
	Status       string    `gorm:"type:varchar(20)" json:"status"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ConnectionStatus) TableName() string {
	return "connection_statuses"
}
