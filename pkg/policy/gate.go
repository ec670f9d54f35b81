// Package policy lets operators override the source reliability gate with Rego.
//
// Policies live in package "reliability" and may define a boolean rule "reliable":
//
//	package reliability
//
//	default reliable := false
//
//	reliable if {
//		endswith(input.domain, ".edu")
//	}
//
// The input carries the source fields, its domain, the heuristic reliability score and
// the built-in verdict under "heuristic". When the rule is undefined for a source the
// built-in verdict applies.
package policy

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

const reliabilityQuery = "data.reliability"

// Gate is a source.Gate backed by a Rego policy.
type Gate struct {
	query    *rego.PreparedEvalQuery
	fallback source.Gate
}

// NewGate loads policies from policyDir. It returns a nil gate without error when the
// directory holds no policy, so callers keep the built-in gate.
func NewGate(ctx context.Context, policyDir string) (*Gate, error) {
	if policyDir == "" {
		return nil, nil
	}

	modules, err := loadModules(policyDir)
	if err != nil {
		return nil, err
	}
	if modules == nil {
		logging.From(ctx).Debug("no reliability policy found", "dir", policyDir)
		return nil, nil
	}

	query, err := prepareQuery(ctx, modules, reliabilityQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare reliability query")
	}

	return &Gate{
		query:    query,
		fallback: source.HeuristicGate{},
	}, nil
}

// IsReliable evaluates the policy for one source.
func (g *Gate) IsReliable(ctx context.Context, s *model.Source) (bool, error) {
	heuristic, err := g.fallback.IsReliable(ctx, s)
	if err != nil {
		return false, err
	}

	authors := make([]any, len(s.Authors))
	for i, a := range s.Authors {
		authors[i] = a
	}
	input := map[string]any{
		"url":               s.URL,
		"domain":            s.Domain(),
		"title":             s.Title,
		"type":              s.Type,
		"description":       s.Description,
		"authors":           authors,
		"date":              s.Date,
		"credibility_score": model.NormalizeScore(s.CredibilityScore),
		"reliability_score": source.ReliabilityScore(s),
		"heuristic":         heuristic,
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate reliability policy", goerr.V("url", s.URL))
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return heuristic, nil
	}
	result, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return heuristic, nil
	}
	verdict, ok := result["reliable"].(bool)
	if !ok {
		return heuristic, nil
	}

	if verdict != heuristic {
		logging.From(ctx).Debug("reliability policy overrode heuristic",
			slog.String("url", s.URL),
			slog.Bool("reliable", verdict))
	}
	return verdict, nil
}
