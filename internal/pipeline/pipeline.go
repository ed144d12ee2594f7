// Package pipeline wires the fetch → process → write stages of the
// ticker onto the actor runtime and owns their lifecycle: the tick
// scheduler, the per-tick flush barrier, and graceful shutdown.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"stockticker/internal/actor"
	"stockticker/pkg/quote"
	"stockticker/pkg/storage/postgres"
)

const (
	defaultInterval    = 10 * time.Second
	defaultChunkSize   = 5
	defaultWindow      = 30
	defaultMaxFetchers = 8
	defaultTailBatches = 10
	defaultTimeout     = 30 * time.Second
)

// Config are the immutable inputs for one run of the pipeline.
type Config struct {
	// Symbols is the working set. Required.
	Symbols []string
	// From is the start of the first tick's fetch window.
	From time.Time
	// Interval between ticks. Default 10s.
	Interval time.Duration
	// ChunkSize is the fan-out granularity: symbols per chunk. This is
	// the throughput tuning knob and should be measured, not guessed.
	// Default 5.
	ChunkSize int
	// Window is the moving-average window in data points. Default 30.
	Window int
	// MaxFetchers caps the fetch/process pool size regardless of how
	// many chunks a tick produces. Default 8.
	MaxFetchers int
	// MailboxCapacity bounds each actor's queue. Default: one full
	// fan-out wave (the number of chunks per tick).
	MailboxCapacity int
	// FetchTimeout bounds one symbol's fetch call. Default 30s.
	FetchTimeout time.Duration
	// OutputFile is the durable CSV sink path. Required.
	OutputFile string
	// TailBatches is how many complete tick batches the collector
	// retains for queries. Default 10.
	TailBatches int
	// Grace bounds both the tick barrier and the shutdown drain.
	// Default: twice the interval.
	Grace time.Duration
}

func (c *Config) withDefaults() error {
	if len(c.Symbols) == 0 {
		return errors.New("pipeline: no symbols configured")
	}
	if c.OutputFile == "" {
		return errors.New("pipeline: no output file configured")
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Window < 1 {
		c.Window = defaultWindow
	}
	if c.MaxFetchers < 1 {
		c.MaxFetchers = defaultMaxFetchers
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultTimeout
	}
	if c.TailBatches < 1 {
		c.TailBatches = defaultTailBatches
	}
	if c.Grace <= 0 {
		c.Grace = 2 * c.Interval
	}
	return nil
}

// Pipeline is the assembled system: actor pools, sinks, scheduler, and
// shutdown coordinator.
type Pipeline struct {
	cfg       Config
	system    *actor.System
	orch      *orchestrator
	coord     *coordinator
	collector *actor.Ref
	orchCtx   context.Context
	runDone   chan struct{}
	log       *zap.Logger
}

// New builds the pipeline: it opens the durable sink, spawns the
// writer, the collector, and paired fetch/process actors, and prepares
// the scheduler. Nothing runs until Start.
func New(cfg Config, provider quote.Provider, store *postgres.Client, console io.Writer, log *zap.Logger) (*Pipeline, error) {
	if err := cfg.withDefaults(); err != nil {
		return nil, err
	}

	numChunks := len(chunkSymbols(cfg.Symbols, cfg.ChunkSize))
	capacity := cfg.MailboxCapacity
	if capacity < 1 {
		capacity = numChunks
	}

	sink, err := OpenCSVSink(cfg.OutputFile, cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	system := actor.NewSystem(log, actor.WithMailboxCapacity(capacity))
	consoleSink := NewConsoleSink(console)
	confirms := make(chan uint64, 2*numChunks)

	collectorRef := system.Spawn("collector", newCollectorHandler(cfg.TailBatches, log))
	writerRef := system.Spawn("writer", &writerHandler{
		sink:     sink,
		store:    store,
		confirms: confirms,
		log:      log,
	})

	poolSize := cfg.MaxFetchers
	if numChunks < poolSize {
		poolSize = numChunks
	}

	// Each fetch actor feeds its own process actor; the pairs make up
	// the pool that chunks are dealt round-robin onto.
	fetchers := make([]*actor.Ref, poolSize)
	processors := make([]*actor.Ref, poolSize)
	for i := 0; i < poolSize; i++ {
		processors[i] = system.Spawn(fmt.Sprintf("process-%d", i), &processHandler{
			window:    cfg.Window,
			console:   consoleSink,
			writer:    writerRef,
			collector: collectorRef,
			log:       log,
		})
		fetchers[i] = system.Spawn(fmt.Sprintf("fetch-%d", i), &fetchHandler{
			provider: provider,
			timeout:  cfg.FetchTimeout,
			next:     processors[i],
			log:      log,
		})
	}

	// Shutdown stops stages upstream-first so nothing produces input
	// for an already-stopped consumer.
	order := make([]string, 0, 2*poolSize+2)
	for _, ref := range fetchers {
		order = append(order, ref.Name())
	}
	for _, ref := range processors {
		order = append(order, ref.Name())
	}
	order = append(order, writerRef.Name(), collectorRef.Name())

	runCtx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})

	state := atomic.NewInt32(int32(Running))
	coord := &coordinator{
		system:  system,
		order:   order,
		sink:    sink,
		cancel:  cancel,
		runDone: runDone,
		grace:   cfg.Grace,
		state:   state,
		stopped: make(chan struct{}),
		log:     log,
	}

	orch := &orchestrator{
		symbols:   cfg.Symbols,
		from:      cfg.From,
		interval:  cfg.Interval,
		chunkSize: cfg.ChunkSize,
		window:    cfg.Window,
		grace:     cfg.Grace,
		system:    system,
		fetchers:  fetchers,
		confirms:  confirms,
		console:   consoleSink,
		state:     coord.State,
		log:       log,
	}

	p := &Pipeline{
		cfg:       cfg,
		system:    system,
		orch:      orch,
		coord:     coord,
		collector: collectorRef,
		runDone:   runDone,
		log:       log,
	}
	p.orchCtx = runCtx
	return p, nil
}

// Start launches the tick loop. It must be called exactly once.
func (p *Pipeline) Start() {
	go func() {
		defer close(p.runDone)
		p.orch.Run(p.orchCtx)
	}()
	p.log.Info("pipeline started",
		zap.Strings("symbols", p.cfg.Symbols),
		zap.Int("chunk_size", p.cfg.ChunkSize),
		zap.Duration("interval", p.cfg.Interval))
}

// RequestShutdown begins a graceful drain; see coordinator.
func (p *Pipeline) RequestShutdown() { p.coord.RequestShutdown() }

// AwaitStopped blocks until the drain has finished.
func (p *Pipeline) AwaitStopped() { p.coord.AwaitStopped() }

// State reports the current lifecycle state.
func (p *Pipeline) State() State { return p.coord.State() }

// Tail returns up to n of the most recent complete tick batches,
// oldest first. It queries the collector actor and fails if the
// pipeline is already stopped.
func (p *Pipeline) Tail(n int) ([][]StatRow, error) {
	reply := make(chan [][]StatRow, 1)
	if err := p.collector.Send(TailRequest{N: n, Reply: reply}); err != nil {
		return nil, fmt.Errorf("pipeline: tail: %w", err)
	}
	select {
	case batches := <-reply:
		return batches, nil
	case <-time.After(5 * time.Second):
		return nil, errors.New("pipeline: tail: collector did not respond")
	}
}
