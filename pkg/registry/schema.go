package registry

// Category groups activities the way workers are laid out under internal/workers.
type Category string

const (
	CategoryAIConversation Category = "ai-conversation"
	CategoryDataAccess     Category = "data-access"
)

type Status string

const (
	StatusPlanned   Status = "planned"
	StatusCompleted Status = "completed"
)

// JSONSchema is a JSON Schema document kept in decoded form.
type JSONSchema map[string]interface{}

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one BPMN service task the worker manager can serve.
type Activity struct {
	TaskType     string     `json:"taskType"`
	DisplayName  string     `json:"displayName"`
	Description  string     `json:"description"`
	Category     Category   `json:"category"`
	Status       Status     `json:"status"`
	Input        JSONSchema `json:"input"`
	Output       JSONSchema `json:"output"`
	ErrorCodes   []string   `json:"errorCodes"`
	Timeout      string     `json:"timeout"`
	Retries      int        `json:"retries"`
	Capabilities []string   `json:"capabilities,omitempty"`
}
