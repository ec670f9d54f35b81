package model

import "time"

// AgentRole names one of the four collaborating agents.
type AgentRole string

const (
	RoleCoordinator AgentRole = "research_coordinator"
	RoleGatherer    AgentRole = "information_gatherer"
	RoleAnalyst     AgentRole = "data_analyst"
	RoleSynthesizer AgentRole = "content_synthesizer"
)

// AllRoles returns the roles in execution order.
func AllRoles() []AgentRole {
	return []AgentRole{RoleCoordinator, RoleGatherer, RoleAnalyst, RoleSynthesizer}
}

type Complexity string

const (
	ComplexityHigh   Complexity = "high"
	ComplexityMedium Complexity = "medium"
	ComplexityLow    Complexity = "low"
)

type SubTaskType string

const (
	SubTaskGathering SubTaskType = "information_gathering"
	SubTaskAnalysis  SubTaskType = "analysis"
	SubTaskSynthesis SubTaskType = "synthesis"
)

type SubTask struct {
	ID          string      `json:"id"`
	Type        SubTaskType `json:"type"`
	Description string      `json:"description"`
	Objective   string      `json:"objective"`
	Agent       AgentRole   `json:"agent"`
}

// ResearchPlan is the coordinator's breakdown of a query.
type ResearchPlan struct {
	Query          string      `json:"query"`
	Complexity     Complexity  `json:"estimated_complexity"`
	Objectives     []string    `json:"objectives"`
	SubTasks       []SubTask   `json:"sub_tasks"`
	RequiredAgents []AgentRole `json:"required_agents"`
	PriorityOrder  []string    `json:"priority_order"`
	CreatedAt      time.Time   `json:"created_at"`
}

type SearchDepth string

const (
	SearchComprehensive SearchDepth = "comprehensive"
	SearchStandard      SearchDepth = "standard"
	SearchQuick         SearchDepth = "quick"
)

// SearchStrategy is the gatherer's plan for querying external tools.
type SearchStrategy struct {
	Query           string      `json:"query"`
	Depth           SearchDepth `json:"depth"`
	SourceTypes     []string    `json:"source_types"`
	SearchQueries   []string    `json:"search_queries"`
	FallbackQueries []string    `json:"fallback_queries"`
}

type AgentState string

const (
	AgentWorking   AgentState = "working"
	AgentCompleted AgentState = "completed"
	AgentError     AgentState = "error"
	AgentUnknown   AgentState = "unknown"
)

// AgentStatus is what an agent shares with the others through shared memory.
type AgentStatus struct {
	Role   AgentRole  `json:"role"`
	Status AgentState `json:"status"`
	Detail string     `json:"detail,omitempty"`
	Error  string     `json:"error,omitempty"`
}

type ProgressError struct {
	Agent string `json:"agent"`
	Error string `json:"error"`
}

// Progress is the coordinator's view over shared agent statuses.
type Progress struct {
	TotalAgents    int                   `json:"total_agents"`
	AgentStatus    map[string]AgentState `json:"agent_status"`
	CompletedTasks []string              `json:"completed_tasks"`
	Errors         []ProgressError       `json:"errors"`
}
