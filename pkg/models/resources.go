package models

// Agent is the request body for creating or updating an AI agent.
// Exactly one of ProviderCredentialID or APIKey is set.
type Agent struct {
	Name                 string   `json:"name"`
	BusinessID           int      `json:"businessId"`
	ProviderCredentialID *int     `json:"providerCredentialId,omitempty"`
	APIKey               string   `json:"apiKey,omitempty"`
	NameProvider         string   `json:"nameProvider,omitempty"`
	Model                string   `json:"model"`
	Temperature          *float64 `json:"temperature,omitempty"`
	EmojiLevel           string   `json:"emojiLevel,omitempty"` // none, low, medium, high
	Personality          string   `json:"personality,omitempty"`
	KnowledgeBase        string   `json:"knowledgeBase,omitempty"`
	Instructions         string   `json:"instructions,omitempty"`
	Timeout              *int     `json:"timeout,omitempty"`  // seconds the deployed bot waits for a reply
	Debounce             *int     `json:"debounce,omitempty"` // seconds
	ServiceTier          string   `json:"service_tier,omitempty"`
}

// Flow binds a conversation-routing definition to an agent.
type Flow struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	BusinessIDs []int  `json:"businessIds"`
	AgentID     int    `json:"agentId"`
}

// File is an uploaded binary attached to a multipart request.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// ConnectionWA holds the inline settings of a new WhatsApp connection.
type ConnectionWA struct {
	Name                string `json:"name"`
	BusinessID          int    `json:"businessId"`
	AgentID             int    `json:"agentId"`
	Description         string `json:"description,omitempty"`
	ProfileStatus       string `json:"profileStatus,omitempty"`
	LastSeenPrivacy     string `json:"lastSeenPrivacy,omitempty"`
	OnlinePrivacy       string `json:"onlinePrivacy,omitempty"`
	ImgPerfilPrivacy    string `json:"imgPerfilPrivacy,omitempty"`
	StatusPrivacy       string `json:"statusPrivacy,omitempty"`
	GroupAddPrivacy     string `json:"groupAddPrivacy,omitempty"`
	ReadReceiptsPrivacy string `json:"readReceiptsPrivacy,omitempty"`
	FileImage           *File  `json:"-"`
}

// ConnectionIg links an Instagram account discovered over the realtime channel.
type ConnectionIg struct {
	IgID       string `json:"ig_id"`
	ModalID    string `json:"modal_id"`
	AgentID    int    `json:"agentId"`
	BusinessID int    `json:"businessId"`
}

// WorkingTime is one opening range in 24h HH:mm.
type WorkingTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// OperatingDay is one weekday of a chatbot schedule. An empty WorkingTimes
// means open the whole day.
type OperatingDay struct {
	DayOfWeek    int           `json:"dayOfWeek"`
	WorkingTimes []WorkingTime `json:"workingTimes"`
}

// Chatbot activates a flow on one or more connections.
// An empty OperatingDays means open 24/7.
type Chatbot struct {
	Name            string         `json:"name"`
	BusinessID      int            `json:"businessId"`
	FlowID          int            `json:"flowId"`
	ConnectionWAID  *int           `json:"connectionWAId,omitempty"`
	ConnectionIgID  *int           `json:"connectionIgId,omitempty"`
	AgentID         int            `json:"agentId"`
	Status          bool           `json:"status"`
	OperatingDays   []OperatingDay `json:"operatingDays"`
	FallbackMessage *string        `json:"fallbackMessage,omitempty"`
}

// Created is the body every create endpoint answers with.
type Created struct {
	ID int `json:"id"`
}
