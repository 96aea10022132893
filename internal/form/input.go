// Package form holds the agent wizard input, its validation rules and the
// mapping of upstream field errors back onto wizard fields.
package form

import (
	"strings"

	"agentai-console/pkg/models"
)

// AgentCreationInput is everything the create wizard collects across its tabs.
type AgentCreationInput struct {
	ModalID    string `json:"modalId"`
	BusinessID int    `json:"businessId" validate:"required,gt=0"`

	// agent tab
	Name                 string `json:"name" validate:"required,max=120"`
	ProviderCredentialID *int   `json:"providerCredentialId,omitempty" validate:"omitempty,gt=0"`
	APIKey               string `json:"apiKey,omitempty"`
	NameProvider         string `json:"nameProvider,omitempty" validate:"omitempty,oneof=openai gemini"`
	Model                string `json:"model" validate:"required"`

	// persona tab
	Personality   string `json:"personality" validate:"max=20000"`
	KnowledgeBase string `json:"knowledgeBase" validate:"max=100000"`
	Instructions  string `json:"instructions" validate:"max=20000"`

	// settings tab
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	EmojiLevel  string   `json:"emojiLevel,omitempty" validate:"omitempty,oneof=none low medium high"`
	Timeout     *int     `json:"timeout,omitempty" validate:"omitempty,gte=0,lte=86400"`
	Debounce    *int     `json:"debounce,omitempty" validate:"omitempty,gte=0,lte=60"`
	ServiceTier string   `json:"service_tier,omitempty" validate:"omitempty,oneof=default flex auto priority"`

	// connection tab
	ConnectionWAID      *int         `json:"connectionWAId,omitempty" validate:"omitempty,gt=0"`
	IgAccountID         string       `json:"igAccountId,omitempty"`
	ConnectionName      string       `json:"connectionName,omitempty" validate:"max=120"`
	Description         string       `json:"description,omitempty" validate:"max=512"`
	ProfileStatus       string       `json:"profileStatus,omitempty" validate:"max=139"`
	LastSeenPrivacy     string       `json:"lastSeenPrivacy,omitempty" validate:"omitempty,oneof=all contacts contact_blacklist none"`
	OnlinePrivacy       string       `json:"onlinePrivacy,omitempty" validate:"omitempty,oneof=all match_last_seen"`
	ImgPerfilPrivacy    string       `json:"imgPerfilPrivacy,omitempty" validate:"omitempty,oneof=all contacts contact_blacklist none"`
	StatusPrivacy       string       `json:"statusPrivacy,omitempty" validate:"omitempty,oneof=all contacts contact_blacklist none"`
	GroupAddPrivacy     string       `json:"groupAddPrivacy,omitempty" validate:"omitempty,oneof=all contacts contact_blacklist"`
	ReadReceiptsPrivacy string       `json:"readReceiptsPrivacy,omitempty" validate:"omitempty,oneof=all none"`
	ProfileImage        *models.File `json:"-"`

	// schedule tab
	OperatingDays   []models.OperatingDay `json:"operatingDays"`
	FallbackMessage *string               `json:"fallbackMessage,omitempty" validate:"omitempty,max=4096"`
}

// Credential is either a stored provider credential or an inline API key.
type Credential interface {
	apply(a *models.Agent)
}

// StoredCredential references a credential saved on the platform.
type StoredCredential struct {
	ID int
}

func (c StoredCredential) apply(a *models.Agent) {
	id := c.ID
	a.ProviderCredentialID = &id
}

// InlineKey carries a provider API key typed into the wizard.
type InlineKey struct {
	Provider string
	APIKey   string
}

func (c InlineKey) apply(a *models.Agent) {
	a.APIKey = c.APIKey
	a.NameProvider = c.Provider
}

// Credential resolves the credential sum. It fails unless exactly one side is set.
func (in AgentCreationInput) Credential() (Credential, error) {
	hasStored := in.ProviderCredentialID != nil
	hasKey := strings.TrimSpace(in.APIKey) != ""
	switch {
	case hasStored && hasKey:
		return nil, errCredentialBoth
	case hasStored:
		return StoredCredential{ID: *in.ProviderCredentialID}, nil
	case hasKey:
		if in.NameProvider == "" {
			return nil, errProviderMissing
		}
		return InlineKey{Provider: in.NameProvider, APIKey: in.APIKey}, nil
	default:
		return nil, errCredentialNone
	}
}

// Agent builds the agent request body. The credential is applied only when
// it resolves, so drafts with an incomplete credential still produce a body.
func (in AgentCreationInput) Agent() models.Agent {
	a := models.Agent{
		Name:          in.Name,
		BusinessID:    in.BusinessID,
		Model:         in.Model,
		Temperature:   in.Temperature,
		EmojiLevel:    in.EmojiLevel,
		Personality:   in.Personality,
		KnowledgeBase: in.KnowledgeBase,
		Instructions:  in.Instructions,
		Timeout:       in.Timeout,
		Debounce:      in.Debounce,
		ServiceTier:   in.ServiceTier,
	}
	if cred, err := in.Credential(); err == nil {
		cred.apply(&a)
	}
	return a
}

// ConnectionWA builds the inline WhatsApp connection for agentID.
func (in AgentCreationInput) ConnectionWA(agentID int) models.ConnectionWA {
	return models.ConnectionWA{
		Name:                in.ConnectionName,
		BusinessID:          in.BusinessID,
		AgentID:             agentID,
		Description:         in.Description,
		ProfileStatus:       in.ProfileStatus,
		LastSeenPrivacy:     in.LastSeenPrivacy,
		OnlinePrivacy:       in.OnlinePrivacy,
		ImgPerfilPrivacy:    in.ImgPerfilPrivacy,
		StatusPrivacy:       in.StatusPrivacy,
		GroupAddPrivacy:     in.GroupAddPrivacy,
		ReadReceiptsPrivacy: in.ReadReceiptsPrivacy,
		FileImage:           in.ProfileImage,
	}
}

// ConnectionIg builds the Instagram link for agentID.
func (in AgentCreationInput) ConnectionIg(agentID int) models.ConnectionIg {
	return models.ConnectionIg{
		IgID:       in.IgAccountID,
		ModalID:    in.ModalID,
		AgentID:    agentID,
		BusinessID: in.BusinessID,
	}
}

// DraftSnapshot is the unsaved configuration sent along with a test message.
// Files and credential metadata never leave the wizard through it.
type DraftSnapshot struct {
	Agent models.Agent
}

// Snapshot captures the current draft for a live test.
func (in AgentCreationInput) Snapshot() DraftSnapshot {
	return DraftSnapshot{Agent: in.Agent()}
}
