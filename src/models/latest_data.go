package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MRateSnapshot struct {
	Type      string           `json:"type"` // "INITIAL" or "UPDATE"
	Rates     []MCanonicalRate `json:"rates"`
	Timestamp int64            `json:"timestamp"`
	Metrics   MPipelineMetrics `json:"pipeline_metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}

// -----------------------------------------------------------------------------

// MPipelineMetrics counts work done by the aggregation pipeline since start.
type MPipelineMetrics struct {
	BatchesProcessed int64 `json:"batches_processed"`
	TicksApplied     int64 `json:"ticks_applied"`
	CandlesFlushed   int64 `json:"candles_flushed"`
	CandlesDropped   int64 `json:"candles_dropped"`
}
