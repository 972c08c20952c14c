// Package workerpool executes independent pipelines concurrently, bounded
// by a configured worker count. It is the Go realization of the teacher's
// core.Processor worker pool (core/processor.go), generalized from image
// jobs to arbitrary core.Pipeline runs.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gofcom/fcom/core"
)

// Job is one pipeline submission.
type Job struct {
	Template *core.PipelineTemplate
	Cmd      *core.Cmd
	// Done, if non-nil, receives the terminal result. The worker's send
	// blocks until there is room, so callers give it capacity 1 (as
	// cmd/fcom does) to keep a worker from blocking on a caller that
	// stopped listening.
	Done chan<- core.Result
	// OnComplete runs on the worker goroutine after the pipeline finishes
	// and may submit further pipelines.
	OnComplete func(core.Result)
}

// Pool runs Jobs on a bounded number of worker goroutines.
type Pool struct {
	sched *core.Scheduler

	queue    chan Job
	wg       sync.WaitGroup
	once     sync.Once
	shutdown chan struct{}

	activeWorkers int32
	workerCount   int32

	onSig  map[*core.Cmd]func(*core.Cmd, core.Signal)
	liveMu sync.Mutex
}

// New creates a Pool. workers <= 0 resolves to runtime.NumCPU(); queueSize
// <= 0 defaults to 256.
func New(sched *core.Scheduler, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{
		sched:       sched,
		queue:       make(chan Job, queueSize),
		shutdown:    make(chan struct{}),
		workerCount: int32(workers),
		onSig:       make(map[*core.Cmd]func(*core.Cmd, core.Signal)),
	}
}

// Start launches the worker goroutines. Idempotent.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := int32(0); i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop drains in-flight work and shuts every worker down.
func (p *Pool) Stop() {
	close(p.shutdown)
	p.wg.Wait()
}

// Available reports whether a worker could take a job right now without
// queueing (spec: "available() → bool").
func (p *Pool) Available() bool {
	return atomic.LoadInt32(&p.activeWorkers) < p.workerCount
}

// Submit enqueues a pipeline run. It blocks if the queue is full; use
// Available() first for a non-blocking check.
func (p *Pool) Submit(job Job) {
	if job.Template.OnSignal != nil {
		p.liveMu.Lock()
		p.onSig[job.Cmd] = job.Template.OnSignal
		p.liveMu.Unlock()
	}
	p.queue <- job
}

// SignalAll broadcasts sig to every live pipeline's operation-provided
// signal handler (spec §4.4: interactive interrupt propagation). Handlers
// are expected to set the pipeline's cooperative stop flag.
func (p *Pool) SignalAll(sig core.Signal) {
	p.liveMu.Lock()
	defer p.liveMu.Unlock()
	for cmd, handler := range p.onSig {
		handler(cmd, sig)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(job)
		}
	}
}

func (p *Pool) run(job Job) {
	atomic.AddInt32(&p.activeWorkers, 1)
	defer atomic.AddInt32(&p.activeWorkers, -1)

	pipeline, err := job.Template.Build(job.Cmd)
	var res core.Result
	if err != nil {
		res = core.Result{Status: core.SysErr, Err: err}
	} else {
		st, rerr := p.sched.Run(pipeline)
		res = core.Result{Status: st, Err: rerr}
	}

	p.liveMu.Lock()
	delete(p.onSig, job.Cmd)
	p.liveMu.Unlock()

	if job.Done != nil {
		job.Done <- res
	}
	if job.OnComplete != nil {
		job.OnComplete(res)
	}
}
