package research

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/ferret/pkg/model"
)

const gatherOutputFormat = "Respond with a JSON object: " +
	`{"sources": [{"url", "title", "authors", "date", "type", "description", "content", "credibility_score", "relevance_score"}], ` +
	`"findings": [{"finding", "source_url"}], "gaps": [string]}. ` +
	"Scores are between 0 and 1. Put a short excerpt of each source into content."

// buildTasks returns the four stage tasks in execution order. Each task depends on the
// previous one; synthesis depends on all of them.
func buildTasks(query string, plan *model.ResearchPlan, strategy *model.SearchStrategy) []*model.Task {
	planning := &model.Task{
		ID:    model.NewTaskID(),
		Stage: model.StagePlan,
		Role:  model.RoleCoordinator,
		Description: fmt.Sprintf(`Create a comprehensive research plan for the following query:

Query: %s

Initial assessment: %s complexity. Candidate objectives:
%s
Your plan should include:
1. Key research objectives
2. Information gathering strategy
3. Analysis approach
4. Expected deliverables

Provide a structured plan that will guide the research process.`,
			query, plan.Complexity, bulletList(plan.Objectives)),
		ExpectedOutput: "A detailed research plan with clear objectives and strategies",
	}

	gathering := &model.Task{
		ID:    model.NewTaskID(),
		Stage: model.StageGather,
		Role:  model.RoleGatherer,
		Description: fmt.Sprintf(`Based on the research plan, gather comprehensive information for:

Query: %s

Search depth: %s. Preferred source types: %s.
Suggested searches:
%s
Your tasks:
1. Search for relevant and credible sources
2. Extract key information from each source
3. Evaluate source reliability
4. Organize findings by relevance
5. Identify any gaps in information

Use all available tools to find high-quality, relevant information.`,
			query, strategy.Depth, strings.Join(strategy.SourceTypes, ", "),
			bulletList(append(append([]string{}, strategy.SearchQueries...), strategy.FallbackQueries...))),
		ExpectedOutput: "Comprehensive collection of relevant information with source citations. " + gatherOutputFormat,
		Dependencies:   []*model.Task{planning},
	}

	analysis := &model.Task{
		ID:    model.NewTaskID(),
		Stage: model.StageAnalyze,
		Role:  model.RoleAnalyst,
		Description: fmt.Sprintf(`Analyze the gathered information to extract meaningful insights:

Original Query: %s

Your analysis should:
1. Identify key patterns and trends
2. Compare different sources and perspectives
3. Find correlations and relationships
4. Assess the quality and consistency of data
5. Generate actionable insights

Provide both quantitative and qualitative analysis.`, query),
		ExpectedOutput: "Detailed analysis with patterns, insights, and confidence levels",
		Dependencies:   []*model.Task{gathering},
	}

	synthesis := &model.Task{
		ID:    model.NewTaskID(),
		Stage: model.StageSynthesize,
		Role:  model.RoleSynthesizer,
		Description: fmt.Sprintf(`Create a comprehensive research report that addresses:

Query: %s

Your report should include:
1. Executive summary
2. Introduction and background
3. Methodology
4. Key findings with proper citations
5. Analysis and insights
6. Conclusions
7. Actionable recommendations
8. References

Ensure the report is well-structured, clear, and provides value to the reader.`, query),
		ExpectedOutput: "Complete research report with all sections properly formatted, one markdown heading per section",
		Dependencies:   []*model.Task{planning, gathering, analysis},
	}

	return []*model.Task{planning, gathering, analysis, synthesis}
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}
