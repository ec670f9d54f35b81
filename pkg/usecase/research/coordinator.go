package research

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
)

var complexityKeywords = []string{
	"comprehensive", "detailed", "in-depth", "analyze",
	"compare", "evaluate", "assess", "investigate",
}

type objectiveRule struct {
	keywords  []string
	objective string
}

var objectiveRules = []objectiveRule{
	{keywords: []string{"what"}, objective: "Identify and explain key concepts"},
	{keywords: []string{"how"}, objective: "Explain processes or mechanisms"},
	{keywords: []string{"why"}, objective: "Analyze causes and reasons"},
	{keywords: []string{"compare", "difference"}, objective: "Compare and contrast different aspects"},
	{keywords: []string{"impact", "effect"}, objective: "Analyze impacts and effects"},
	{keywords: []string{"future", "trend"}, objective: "Identify future trends and projections"},
	{keywords: []string{"current", "latest"}, objective: "Find current/latest information"},
}

const defaultObjective = "Gather comprehensive information on the topic"

// PlanResearch breaks a query down into objectives and sub-tasks.
func PlanResearch(query string, now time.Time) *model.ResearchPlan {
	objectives := identifyObjectives(query)
	subTasks := createSubTasks(objectives)

	return &model.ResearchPlan{
		Query:          query,
		Complexity:     analyzeComplexity(query),
		Objectives:     objectives,
		SubTasks:       subTasks,
		RequiredAgents: requiredAgents(subTasks),
		PriorityOrder:  prioritize(subTasks),
		CreatedAt:      now,
	}
}

func analyzeComplexity(query string) model.Complexity {
	lower := strings.ToLower(query)

	score := strings.Count(query, "?") + strings.Count(lower, " and ")
	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}

	switch {
	case score >= 4:
		return model.ComplexityHigh
	case score >= 2:
		return model.ComplexityMedium
	default:
		return model.ComplexityLow
	}
}

func identifyObjectives(query string) []string {
	lower := strings.ToLower(query)

	var objectives []string
	for _, rule := range objectiveRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				objectives = append(objectives, rule.objective)
				break
			}
		}
	}
	if len(objectives) == 0 {
		objectives = []string{defaultObjective}
	}
	return objectives
}

func createSubTasks(objectives []string) []model.SubTask {
	var tasks []model.SubTask
	for i, objective := range objectives {
		lower := strings.ToLower(objective)

		if strings.Contains(lower, "information") || strings.Contains(lower, "identify") {
			tasks = append(tasks, model.SubTask{
				ID:          fmt.Sprintf("task_%d_gather", i),
				Type:        model.SubTaskGathering,
				Description: "Gather relevant information for: " + objective,
				Objective:   objective,
				Agent:       model.RoleGatherer,
			})
		}
		if strings.Contains(lower, "analyze") || strings.Contains(lower, "compare") {
			tasks = append(tasks, model.SubTask{
				ID:          fmt.Sprintf("task_%d_analyze", i),
				Type:        model.SubTaskAnalysis,
				Description: "Analyze data for: " + objective,
				Objective:   objective,
				Agent:       model.RoleAnalyst,
			})
		}
		if i == len(objectives)-1 {
			tasks = append(tasks, model.SubTask{
				ID:          fmt.Sprintf("task_%d_synthesize", i),
				Type:        model.SubTaskSynthesis,
				Description: "Synthesize all findings into comprehensive report",
				Objective:   "Create final research output",
				Agent:       model.RoleSynthesizer,
			})
		}
	}
	return tasks
}

func requiredAgents(tasks []model.SubTask) []model.AgentRole {
	seen := map[model.AgentRole]bool{}
	var agents []model.AgentRole
	for _, t := range tasks {
		if t.Agent != "" && !seen[t.Agent] {
			seen[t.Agent] = true
			agents = append(agents, t.Agent)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })
	return agents
}

func prioritize(tasks []model.SubTask) []string {
	var order []string
	for _, typ := range []model.SubTaskType{model.SubTaskGathering, model.SubTaskAnalysis, model.SubTaskSynthesis} {
		for _, t := range tasks {
			if t.Type == typ {
				order = append(order, t.ID)
			}
		}
	}
	return order
}

// storePlan records the plan and shares it with the other agents at high priority.
func storePlan(store *memory.Store, plan *model.ResearchPlan) {
	store.StoreShortTerm(memory.KeyResearchPlan, plan, map[string]string{
		"complexity": string(plan.Complexity),
	})
	store.ShareData(memory.AgentCoordinator, plan, model.PriorityHigh)
}

// MonitorProgress summarizes the statuses agents shared. A shared research plan means the
// coordinator finished planning; any other value counts as an unknown state.
func MonitorProgress(store *memory.Store) *model.Progress {
	shared := store.GetAllSharedData("")

	progress := &model.Progress{
		TotalAgents:    len(shared),
		AgentStatus:    make(map[string]model.AgentState, len(shared)),
		CompletedTasks: []string{},
		Errors:         []model.ProgressError{},
	}

	agents := make([]string, 0, len(shared))
	for id := range shared {
		agents = append(agents, id)
	}
	sort.Strings(agents)

	for _, id := range agents {
		var status *model.AgentStatus
		switch v := shared[id].(type) {
		case *model.AgentStatus:
			status = v
		case *model.ResearchPlan:
			status = &model.AgentStatus{Status: model.AgentCompleted}
		default:
			progress.AgentStatus[id] = model.AgentUnknown
			continue
		}

		progress.AgentStatus[id] = status.Status
		switch status.Status {
		case model.AgentCompleted:
			progress.CompletedTasks = append(progress.CompletedTasks, id)
		case model.AgentError:
			msg := status.Error
			if msg == "" {
				msg = "Unknown error"
			}
			progress.Errors = append(progress.Errors, model.ProgressError{Agent: id, Error: msg})
		}
	}

	return progress
}
