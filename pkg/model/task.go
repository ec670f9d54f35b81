package model

import "github.com/google/uuid"

type Stage string

const (
	StagePlan       Stage = "plan"
	StageGather     Stage = "gather"
	StageAnalyze    Stage = "analyze"
	StageSynthesize Stage = "synthesize"
)

// Stages returns the fixed execution order.
func Stages() []Stage {
	return []Stage{StagePlan, StageGather, StageAnalyze, StageSynthesize}
}

type TaskID string

func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// Task is one unit of work handed to the agent execution collaborator. Dependencies
// point at previously executed tasks whose Output is available as context.
type Task struct {
	ID             TaskID
	Stage          Stage
	Role           AgentRole
	Description    string
	ExpectedOutput string
	Dependencies   []*Task
	Output         string
}
