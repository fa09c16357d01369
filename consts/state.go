package consts

const (
	// Mood graph
	State_GraphState = "graph_state"

	// Orchestrator graph
	State_Plan       = "plan"
	State_Tickers    = "tickers"
	State_Report     = "report"
	State_Response   = "response"
	State_LookupUsed = "lookup_used"
)
