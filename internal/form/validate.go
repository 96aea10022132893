package form

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"agentai-console/internal/schedule"
	"agentai-console/pkg/models"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Tab names a step of the agent wizard.
type Tab string

const (
	TabAgent      Tab = "agent"
	TabPersona    Tab = "persona"
	TabSettings   Tab = "settings"
	TabConnection Tab = "connection"
	TabSchedule   Tab = "schedule"
)

var tabOrder = []Tab{TabAgent, TabPersona, TabSettings, TabConnection, TabSchedule}

var fieldTabs = map[string]Tab{
	"businessId":           TabAgent,
	"name":                 TabAgent,
	"credential":           TabAgent,
	"providerCredentialId": TabAgent,
	"apiKey":               TabAgent,
	"nameProvider":         TabAgent,
	"model":                TabAgent,
	"personality":          TabPersona,
	"knowledgeBase":        TabPersona,
	"instructions":         TabPersona,
	"temperature":          TabSettings,
	"emojiLevel":           TabSettings,
	"timeout":              TabSettings,
	"debounce":             TabSettings,
	"service_tier":         TabSettings,
	"connection":           TabConnection,
	"connectionWAId":       TabConnection,
	"igAccountId":          TabConnection,
	"connectionName":       TabConnection,
	"description":          TabConnection,
	"profileStatus":        TabConnection,
	"lastSeenPrivacy":      TabConnection,
	"onlinePrivacy":        TabConnection,
	"imgPerfilPrivacy":     TabConnection,
	"statusPrivacy":        TabConnection,
	"groupAddPrivacy":      TabConnection,
	"readReceiptsPrivacy":  TabConnection,
	"profileImage":         TabConnection,
	"operatingDays":        TabSchedule,
	"fallbackMessage":      TabSchedule,
}

var (
	errCredentialBoth  = errors.New("choose either a saved credential or an API key, not both")
	errCredentialNone  = errors.New("a saved credential or an API key is required")
	errProviderMissing = errors.New("provider is required when using an API key")
	errConnectionBoth  = errors.New("choose only one of an existing WhatsApp connection, an Instagram account or a new connection")
	errConnectionName  = errors.New("connection name is required")
)

// connectionSources counts how many of the three connection choices are set.
func (in AgentCreationInput) connectionSources() int {
	n := 0
	if in.ConnectionWAID != nil {
		n++
	}
	if strings.TrimSpace(in.IgAccountID) != "" {
		n++
	}
	if strings.TrimSpace(in.ConnectionName) != "" {
		n++
	}
	return n
}

// ValidationError blocks a submission before any network call.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
	Tab    Tab               `json:"tab"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed (" + string(e.Tab) + "): " + strings.Join(parts, "; ")
}

// TabFor returns the wizard tab that owns a field path.
func TabFor(path string) Tab {
	root := path
	if i := strings.IndexAny(root, ".["); i >= 0 {
		root = root[:i]
	}
	if tab, ok := fieldTabs[root]; ok {
		return tab
	}
	return TabAgent
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field rules and the combined cross-field rules. Rule
// violations are reported as a *ValidationError.
func Validate(in AgentCreationInput) error {
	fields := map[string]string{}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(err, "validate agent input")
		}
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe)
		}
	}

	if _, err := in.Credential(); err != nil {
		fields["credential"] = err.Error()
	}

	switch sources := in.connectionSources(); {
	case sources > 1:
		fields["connection"] = errConnectionBoth.Error()
	case sources == 0:
		fields["connectionName"] = errConnectionName.Error()
	}

	for _, p := range schedule.Validate(in.OperatingDays) {
		fields[p.Path] = p.Message
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields, Tab: firstTab(fields)}
}

// ValidateAgent keeps only the agent, persona and settings rules. It is
// used when an existing agent is edited without its connection or chatbot.
func ValidateAgent(in AgentCreationInput) error {
	err := Validate(in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	fields := map[string]string{}
	for path, msg := range verr.Fields {
		switch TabFor(path) {
		case TabAgent, TabPersona, TabSettings:
			fields[path] = msg
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields, Tab: firstTab(fields)}
}

// ValidateSchedule checks only the schedule of an edited chatbot.
func ValidateSchedule(days []models.OperatingDay) error {
	problems := schedule.Validate(days)
	if len(problems) == 0 {
		return nil
	}
	fields := make(map[string]string, len(problems))
	for _, p := range problems {
		fields[p.Path] = p.Message
	}
	return &ValidationError{Fields: fields, Tab: TabSchedule}
}

func firstTab(fields map[string]string) Tab {
	rank := make(map[Tab]int, len(tabOrder))
	for i, t := range tabOrder {
		rank[t] = i
	}
	best := TabSchedule
	for path := range fields {
		if t := TabFor(path); rank[t] < rank[best] {
			best = t
		}
	}
	return best
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("invalid value (%s)", fe.Tag())
	}
}
