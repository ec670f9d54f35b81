package memory

// Short-term keys written during a research run.
const (
	KeyResearchQuery   = "research_query"
	KeyStartTime       = "start_time"
	KeyResearchPlan    = "research_plan"
	KeySearchStrategy  = "search_strategy"
	KeyTopSources      = "top_sources"
	KeyGatheredInfo    = "extracted_information"
	KeyAnalysisResults = "analysis_results"
	KeyCompletedReport = "completed_report"
	KeyStageOutput     = "stage_output_"
)

// Shared-data agent identifiers.
const (
	AgentCoordinator = "coordinator"
	AgentGatherer    = "information_gatherer"
	AgentAnalyst     = "data_analyst"
	AgentSynthesizer = "content_synthesizer"
)
