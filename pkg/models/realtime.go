package models

// Realtime event names exchanged with the upstream socket.
const (
	EventJoinModal      = "join_modal:create_agentai"
	EventExitModal      = "exit_modal:create_agentai"
	EventClearTokenTest = "agent-ai:clear-tokenTest"
	EventAccounts       = "receber_accounts"
	EventStatus         = "status-connection"
	eventTestPrefix     = "test-agent-"
)

// TestEvent returns the event name carrying replies for a test token.
func TestEvent(token string) string {
	return eventTestPrefix + token
}

// Chat roles of a test transcript.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// TestMessage is one transcript line of a live test session.
type TestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AccountIg is an Instagram account offered for linking.
type AccountIg struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// Connection states reported by status-connection.
const (
	StatusOpen           = "open"
	StatusClose          = "close"
	StatusConnecting     = "connecting"
	StatusSync           = "sync"
	StatusConnectionLost = "connectionLost"
)

// StatusConnection is the payload of a status-connection event.
type StatusConnection struct {
	ConnectionID int    `json:"connectionId"`
	Connection   string `json:"connection"`
}

// TestRequest is the body posted to the stateless agent test endpoint.
type TestRequest struct {
	Agent
	Content   string `json:"content"`
	TokenTest string `json:"tokenTest"`
}
