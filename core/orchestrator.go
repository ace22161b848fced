package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/r4j3sh-com/reconprog/cache"
)

// Task selects one module profile to run against the session target.
type Task struct {
	Module  string
	Profile string
	// CustomArgs replaces the preset arguments of the "custom" profile.
	CustomArgs []string
}

func (t Task) String() string { return t.Module + ":" + t.Profile }

// ParseTask reads "module:profile". A missing profile means "basic".
func ParseTask(s string) (Task, error) {
	module, profile, _ := strings.Cut(strings.TrimSpace(s), ":")
	if module == "" {
		return Task{}, fmt.Errorf("invalid task %q, want module:profile", s)
	}
	if profile == "" {
		profile = "basic"
	}
	return Task{Module: module, Profile: profile}, nil
}

// TaskResult is the outcome of one executed or cache-served task.
type TaskResult struct {
	Module    string        `json:"module"`
	Profile   string        `json:"profile"`
	Target    string        `json:"target"`
	Timestamp time.Time     `json:"timestamp"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exit_code"`
	Parsed    Intelligence  `json:"parsed"`
	FromCache bool          `json:"from_cache"`
	Elapsed   time.Duration `json:"elapsed"`
}

// OK reports whether the tool exited cleanly.
func (r TaskResult) OK() bool { return r.ExitCode == 0 }

// Failure records why one batch task did not succeed.
type Failure struct {
	Module  string `json:"module"`
	Profile string `json:"profile"`
	Reason  string `json:"reason"`
}

// BatchReport summarises one batch session.
type BatchReport struct {
	Target    string        `json:"target"`
	Results   []TaskResult  `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failures  []Failure     `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Orchestrator runs tasks through the module registry with caching.
type Orchestrator struct {
	engine *Engine
	cache  cache.Store
	cfg    *Config

	// NoCache skips both lookups and write-through.
	NoCache bool
	// OnResult, if set, receives each batch result as soon as it is known.
	// Calls are serialised.
	OnResult func(TaskResult)

	// grace is added to the task timeout before a batch worker is abandoned.
	grace time.Duration
}

// NewOrchestrator wires an engine to a cache. store may be nil to disable
// caching; cfg may be nil for defaults.
func NewOrchestrator(engine *Engine, store cache.Store, cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Orchestrator{engine: engine, cache: store, cfg: cfg, grace: 2 * time.Second}
}

// Engine returns the module registry.
func (o *Orchestrator) Engine() *Engine { return o.engine }

func cacheable(profile string) bool {
	return profile != ProfileCustom && profile != ProfileManage
}

func (o *Orchestrator) useCache(profile string) bool {
	return o.cache != nil && !o.NoCache && cacheable(profile)
}

// Execute runs a single task synchronously. The error is non-nil only for
// an unknown module or profile; tool failures are encoded in the result.
func (o *Orchestrator) Execute(ctx context.Context, target string, t Task) (TaskResult, error) {
	mod, p, err := o.engine.Profile(t.Module, t.Profile)
	if err != nil {
		return TaskResult{}, err
	}
	if res, ok := o.fromCache(target, mod, p); ok {
		return res, nil
	}
	return o.run(ctx, target, mod, p, t.CustomArgs), nil
}

func (o *Orchestrator) fromCache(target string, mod Module, p Profile) (TaskResult, bool) {
	if !o.useCache(p.Name) {
		return TaskResult{}, false
	}
	entry, ok := o.cache.Get(target, mod.Name(), p.Name, o.cfg.CacheTTL())
	if !ok {
		return TaskResult{}, false
	}
	parsed := make(Intelligence, len(entry.Parsed)+1)
	for k, v := range entry.Parsed {
		parsed[k] = v
	}
	parsed["_cached"] = true

	Logger.WithFields(logrus.Fields{
		"module":  mod.Name(),
		"profile": p.Name,
		"target":  target,
	}).Debug("Serving cached result")

	return TaskResult{
		Module:    mod.Name(),
		Profile:   p.Name,
		Target:    target,
		Timestamp: entry.Timestamp,
		Stdout:    entry.Stdout,
		Stderr:    entry.Stderr,
		Parsed:    parsed,
		FromCache: true,
	}, true
}

// run is the cache-miss path: run, parse, write through.
func (o *Orchestrator) run(ctx context.Context, target string, mod Module, p Profile, custom []string) TaskResult {
	log := Logger.WithFields(logrus.Fields{
		"module":  mod.Name(),
		"profile": p.Name,
		"target":  target,
	})
	log.Debug("Running task")
	start := time.Now()

	var exec ExecutionResult
	if cr, ok := mod.(CustomRunner); ok && p.Name == ProfileCustom && len(custom) > 0 {
		exec = cr.RunCustom(ctx, target, custom)
	} else {
		exec = mod.Run(ctx, target, p.Name)
	}

	res := TaskResult{
		Module:    mod.Name(),
		Profile:   p.Name,
		Target:    target,
		Timestamp: time.Now(),
		Stdout:    exec.Stdout,
		Stderr:    exec.Stderr,
		ExitCode:  exec.ExitCode,
	}
	switch {
	case p.Name == ProfileManage:
	case exec.Stdout == "":
		res.Parsed = Intelligence{"error": "No output"}
	default:
		res.Parsed = mod.Parse(p.Name, exec.Stdout)
	}
	res.Elapsed = time.Since(start)

	log = log.WithFields(logrus.Fields{"exit_code": res.ExitCode, "elapsed": res.Elapsed.Round(time.Millisecond)})
	if !res.OK() {
		log.Warn("Task finished with non-zero exit")
		return res
	}
	log.Debug("Task finished")

	if o.useCache(p.Name) {
		if err := o.cache.Set(target, mod.Name(), p.Name, res.Stdout, res.Stderr, res.Parsed); err != nil {
			log.WithError(err).Warn("Failed to write cache")
		}
	}
	return res
}

// RunBatch runs tasks concurrently against one target. Cache hits are
// resolved first; each miss gets its own worker. One task failing, timing
// out, or panicking never affects the others. Results are in completion
// order.
func (o *Orchestrator) RunBatch(ctx context.Context, target string, tasks []Task) BatchReport {
	start := time.Now()
	report := BatchReport{Target: target, Results: []TaskResult{}, Failures: []Failure{}}

	var mu sync.Mutex
	record := func(res *TaskResult, fail *Failure) {
		mu.Lock()
		defer mu.Unlock()
		if res != nil {
			report.Results = append(report.Results, *res)
			if res.OK() {
				report.Succeeded++
			}
			if o.OnResult != nil {
				o.OnResult(*res)
			}
		}
		if fail != nil {
			report.Failures = append(report.Failures, *fail)
		}
	}

	type job struct {
		task Task
		mod  Module
		p    Profile
	}
	var misses []job
	for _, t := range tasks {
		mod, p, err := o.engine.Profile(t.Module, t.Profile)
		if err != nil {
			record(nil, &Failure{Module: t.Module, Profile: t.Profile, Reason: err.Error()})
			continue
		}
		if res, ok := o.fromCache(target, mod, p); ok {
			record(&res, nil)
			continue
		}
		misses = append(misses, job{task: t, mod: mod, p: p})
	}

	if len(misses) > 0 {
		var g errgroup.Group
		g.SetLimit(len(misses))
		for _, j := range misses {
			j := j
			g.Go(func() error {
				res, err := o.runWatched(ctx, target, j.mod, j.p, j.task.CustomArgs)
				if err != nil {
					Logger.WithFields(logrus.Fields{
						"module":  j.mod.Name(),
						"profile": j.p.Name,
						"target":  target,
					}).WithError(err).Error("Task failed")
					record(nil, &Failure{Module: j.mod.Name(), Profile: j.p.Name, Reason: err.Error()})
					return nil
				}
				var fail *Failure
				if !res.OK() {
					fail = &Failure{Module: res.Module, Profile: res.Profile, Reason: exitReason(res)}
				}
				record(&res, fail)
				return nil
			})
		}
		// Workers never return errors.
		_ = g.Wait()
	}

	report.Elapsed = time.Since(start)
	Logger.WithFields(logrus.Fields{
		"target":    target,
		"tasks":     len(tasks),
		"succeeded": report.Succeeded,
		"failed":    len(report.Failures),
		"elapsed":   report.Elapsed.Round(time.Millisecond),
	}).Info("Batch finished")
	return report
}

// runWatched runs the miss path with a deadline of the task timeout plus
// grace, converting panics and overruns into errors.
func (o *Orchestrator) runWatched(ctx context.Context, target string, mod Module, p Profile, custom []string) (TaskResult, error) {
	timeout := ResolveTimeout(o.cfg, mod.Name(), p)
	ctx, cancel := context.WithTimeout(ctx, timeout+o.grace)
	defer cancel()

	type outcome struct {
		res TaskResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		done <- outcome{res: o.run(ctx, target, mod, p, custom)}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return TaskResult{}, fmt.Errorf("timed out after %s", timeout)
		}
		return TaskResult{}, ctx.Err()
	}
}

func exitReason(res TaskResult) string {
	reason := fmt.Sprintf("exit code %d", res.ExitCode)
	if msg, _, _ := strings.Cut(strings.TrimSpace(res.Stderr), "\n"); msg != "" {
		reason += ": " + msg
	}
	return reason
}
