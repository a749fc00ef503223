// pkg/registry/schema.go

// Package registry describes the Zeebe task types this service implements:
// their input and output schemas, error codes and locking.
package registry

// LockScopeProject marks an activity that serializes on the project lock.
const LockScopeProject = "project"

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	LockScope            string                 `json:"lockScope,omitempty"`
	Workflows            []string               `json:"workflows"`
	Tags                 []string               `json:"tags"`
}
