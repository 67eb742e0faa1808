package models

// Observation categories. Collectors tag every reading with one of these;
// smart and raid are treated as critical infrastructure by the suppression
// policies.
const (
	CategoryService = "service"
	CategorySystem  = "system"
	CategoryDisk    = "disk"
	CategoryDocker  = "docker"
	CategorySmart   = "smart"
	CategoryRaid    = "raid"
	CategoryApp     = "app"
)

// Observation is a single reading produced by a collector: what was probed,
// how healthy it looked, and category-specific context for the alert message.
type Observation struct {
	Category string         `json:"category"`
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Details  map[string]any `json:"details,omitempty"`
}
