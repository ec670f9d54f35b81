package tool

import (
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Function names the default role mapping refers to. Search, scraping and file reading
// are provided by MCP servers; the academic analyzer and memory tools are built in.
const (
	NameWebSearch       = "web_search"
	NameWebsiteSearch   = "website_search"
	NameScrapeWebsite   = "scrape_website"
	NameFileRead        = "file_read"
	NameAcademicSource  = "analyze_academic_source"
	NameShareProgress   = "share_progress"
	NameReliableSources = "recall_reliable_sources"
)

// CommonTools are offered to every role in addition to its own mapping.
var CommonTools = []string{NameShareProgress, NameReliableSources}

// RoleTools maps an agent role to the function names it may call.
type RoleTools map[model.AgentRole][]string

func DefaultRoleTools() RoleTools {
	return RoleTools{
		model.RoleCoordinator: {},
		model.RoleGatherer:    {NameWebSearch, NameWebsiteSearch, NameScrapeWebsite, NameAcademicSource},
		model.RoleAnalyst:     {NameFileRead, NameAcademicSource},
		model.RoleSynthesizer: {NameFileRead},
	}
}

// Merge returns a copy of x where roles present in override replace x's entries.
func (x RoleTools) Merge(override RoleTools) RoleTools {
	merged := make(RoleTools, len(x))
	for role, names := range x {
		merged[role] = append([]string(nil), names...)
	}
	for role, names := range override {
		merged[role] = append([]string(nil), names...)
	}
	return merged
}

// Validate fails on roles that are not one of the four agent roles.
func (x RoleTools) Validate() error {
	known := map[model.AgentRole]bool{}
	for _, role := range model.AllRoles() {
		known[role] = true
	}
	for role := range x {
		if !known[role] {
			return goerr.New("unknown agent role in tool mapping", goerr.V("role", role))
		}
	}
	return nil
}

// ForRole derives a registry restricted to the role's functions and the common tools.
func (r *Registry) ForRole(roles RoleTools, role model.AgentRole) *Registry {
	allowed := map[string]bool{}
	for _, name := range roles[role] {
		allowed[name] = true
	}
	for _, name := range CommonTools {
		allowed[name] = true
	}

	derived := New()
	seen := map[Tool]bool{}
	for _, name := range r.Names() {
		if !allowed[name] {
			continue
		}
		t := r.tools[name]
		derived.tools[name] = t
		derived.decls[name] = r.decls[name]
		if !seen[t] {
			seen[t] = true
			derived.allTools = append(derived.allTools, t)
		}
	}
	return derived
}

// RoleStatus lists which of a role's mapped tools are registered.
type RoleStatus struct {
	Role      model.AgentRole `json:"role"`
	Available []string        `json:"available"`
	Missing   []string        `json:"missing"`
}

// Status reports mapped tool availability for every role in execution order.
func (r *Registry) Status(roles RoleTools) []RoleStatus {
	statuses := make([]RoleStatus, 0, len(roles))
	for _, role := range model.AllRoles() {
		st := RoleStatus{Role: role, Available: []string{}, Missing: []string{}}
		for _, name := range roles[role] {
			if r.Has(name) {
				st.Available = append(st.Available, name)
			} else {
				st.Missing = append(st.Missing, name)
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// Unequipped returns roles that have mapped tools but none of them registered.
func (r *Registry) Unequipped(roles RoleTools) []model.AgentRole {
	var out []model.AgentRole
	for _, st := range r.Status(roles) {
		if len(st.Available) == 0 && len(st.Missing) > 0 {
			out = append(out, st.Role)
		}
	}
	return out
}

// Declaration builds the spec of a tool exposing a single function.
func Declaration(name, description string, params map[string]*genai.Schema, required ...string) *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        name,
				Description: description,
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: params,
					Required:   required,
				},
			},
		},
	}
}
