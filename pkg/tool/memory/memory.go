// Package memory exposes the run's shared research memory to agents.
package memory

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/m-mizutani/ferret/pkg/memory"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const defaultRecallLimit = 10

// New returns the memory tools bound to one run's store.
func New(store *memory.Store) []tool.Tool {
	return []tool.Tool{
		&shareProgress{store: store},
		&recallSources{store: store},
	}
}

type shareProgressInput struct {
	Agent  string `json:"agent"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type shareProgress struct {
	store *memory.Store
}

func (x *shareProgress) Flags() []cli.Flag { return nil }

func (x *shareProgress) Prompt(ctx context.Context) string {
	return ""
}

func (x *shareProgress) Spec() *genai.Tool {
	roles := make([]string, 0, 4)
	for _, r := range model.AllRoles() {
		roles = append(roles, string(r))
	}

	return tool.Declaration(tool.NameShareProgress,
		"Share your current progress with the other research agents",
		map[string]*genai.Schema{
			"agent": {
				Type:        genai.TypeString,
				Description: "Your agent role",
				Enum:        roles,
			},
			"status": {
				Type:        genai.TypeString,
				Description: "Current status",
				Enum:        []string{string(model.AgentWorking), string(model.AgentCompleted), string(model.AgentError)},
			},
			"detail": {
				Type:        genai.TypeString,
				Description: "Short description of what you did or what failed",
			},
		},
		"agent", "status",
	)
}

func (x *shareProgress) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var input shareProgressInput
	if err := decodeArgs(fc, &input); err != nil {
		return nil, err
	}

	status := &model.AgentStatus{
		Role:   model.AgentRole(input.Agent),
		Status: model.AgentState(input.Status),
		Detail: input.Detail,
	}
	switch status.Status {
	case model.AgentWorking, model.AgentCompleted:
	case model.AgentError:
		status.Error = input.Detail
	default:
		return nil, goerr.New("invalid status", goerr.V("status", input.Status))
	}

	x.store.ShareData(input.Agent, status, model.PriorityNormal)

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": "progress shared"},
	}, nil
}

type recallInput struct {
	Limit int `json:"limit"`
}

type recallSources struct {
	store *memory.Store
}

func (x *recallSources) Flags() []cli.Flag { return nil }

func (x *recallSources) Prompt(ctx context.Context) string {
	return `Call recall_reliable_sources to see sources earlier research rated as reliable before searching from scratch.`
}

func (x *recallSources) Spec() *genai.Tool {
	return tool.Declaration(tool.NameReliableSources,
		"List sources previously rated as reliable, best rated first",
		map[string]*genai.Schema{
			"limit": {
				Type:        genai.TypeInteger,
				Description: "Max results (default: 10)",
			},
		},
	)
}

func (x *recallSources) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var input recallInput
	if err := decodeArgs(fc, &input); err != nil {
		return nil, err
	}
	if input.Limit <= 0 {
		input.Limit = defaultRecallLimit
	}

	rankings := []*model.SourceRanking{}
	seen := map[string]bool{}
	if v, ok := x.store.GetLongTerm(memory.CategoryReliableSources); ok {
		if list, ok := v.(model.ValueList); ok {
			for _, item := range list {
				r, ok := item.(*model.SourceRanking)
				if !ok || seen[r.URL] {
					continue
				}
				seen[r.URL] = true
				rankings = append(rankings, r)
			}
		}
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].OverallScore > rankings[j].OverallScore
	})
	if len(rankings) > input.Limit {
		rankings = rankings[:input.Limit]
	}

	resultJSON, err := json.MarshalIndent(rankings, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal result")
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": string(resultJSON)},
	}, nil
}

func decodeArgs(fc genai.FunctionCall, v any) error {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal function arguments")
	}
	if err := json.Unmarshal(paramsJSON, v); err != nil {
		return goerr.Wrap(err, "failed to parse input parameters")
	}
	return nil
}
