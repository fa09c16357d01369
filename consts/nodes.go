package consts

const (
	// 情绪示例图节点
	MoodNode1 = "node_1"
	MoodNode2 = "node_2"
	MoodNode3 = "node_3"

	// 编排节点
	PlanStep    = "plan"
	LookupStep  = "lookup"
	CompareStep = "compare"
	RespondStep = "respond"
)

const (
	// 工具名称
	ToolSymbolLookup        = "symbol_lookup"
	ToolCompareStocks       = "compare_stocks_and_generate_report"
	ToolPerformanceSnapshot = "performance_snapshot"
	ToolStockAnalyzer       = "stock_analyzer"
	ToolVisitWebpage        = "visit_webpage"
)
