package pipeline

import (
	"fmt"
	"time"
)

// SymbolSeries is one symbol's fetch outcome inside a chunk: either
// the closing prices over the requested window, or the error that
// prevented them. A failed symbol never fails its chunk.
type SymbolSeries struct {
	Symbol string
	Closes []float64
	Err    error
}

// FetchRequest asks a fetch actor to retrieve one chunk of symbols
// for the tick's [From, To) window. Start is the tick start instant,
// carried through the pipeline for latency reporting.
type FetchRequest struct {
	Tick   uint64
	Chunk  []string
	Chunks int
	From   time.Time
	To     time.Time
	Start  time.Time
}

// Kind implements actor.Message.
func (FetchRequest) Kind() string { return "pipeline.fetch_request" }

// ProcessRequest carries a chunk's fetch results to a process actor.
type ProcessRequest struct {
	Tick   uint64
	Chunks int
	From   time.Time
	Series []SymbolSeries
	Start  time.Time
}

// Kind implements actor.Message.
func (ProcessRequest) Kind() string { return "pipeline.process_request" }

// WriteRequest carries a chunk's computed rows to the writer actor.
type WriteRequest struct {
	Tick  uint64
	Rows  []StatRow
	Start time.Time
}

// Kind implements actor.Message.
func (WriteRequest) Kind() string { return "pipeline.write_request" }

// CollectRequest carries a chunk's rows to the collector actor, which
// assembles them into complete per-tick batches. Chunks is the number
// of chunks the tick was split into, so the collector knows when a
// batch is complete.
type CollectRequest struct {
	Tick   uint64
	Chunks int
	Rows   []StatRow
}

// Kind implements actor.Message.
func (CollectRequest) Kind() string { return "pipeline.collect_request" }

// TailRequest asks the collector for the most recent complete batches.
// The response is delivered on Reply, which must be buffered.
type TailRequest struct {
	N     int
	Reply chan [][]StatRow
}

// Kind implements actor.Message.
func (TailRequest) Kind() string { return "pipeline.tail_request" }

// StatRow is the computed output record for one symbol in one tick.
// Immutable once produced.
type StatRow struct {
	PeriodStart time.Time
	Symbol      string
	Price       float64
	PctChange   float64
	Min         float64
	Max         float64
	Avg         float64
}

// CSV renders the row as one line of the output format:
// period start,symbol,price,change %,min,max,avg.
func (r StatRow) CSV() string {
	return fmt.Sprintf("%s,%s,$%.2f,%.2f%%,$%.2f,$%.2f,$%.2f",
		r.PeriodStart.UTC().Format(time.RFC3339),
		r.Symbol, r.Price, r.PctChange, r.Min, r.Max, r.Avg)
}

// csvHeader returns the header line for the configured moving-average
// window, e.g. "period start,symbol,price,change %,min,max,30d avg".
func csvHeader(window int) string {
	return fmt.Sprintf("period start,symbol,price,change %%,min,max,%dd avg", window)
}
