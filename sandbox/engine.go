package sandbox

import (
	"context"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"go.uber.org/zap"

	"github.com/isdmx/starbox/config"
	"github.com/isdmx/starbox/guard"
	"github.com/isdmx/starbox/policy"
)

// resultName is the reserved binding the engine extracts as the run's value.
const resultName = "result"

// snippetFilename is the name snippets carry in traces.
const snippetFilename = "snippet.star"

// fileOptions enables the free-form dialect analysis snippets are written
// in: top-level control flow, while loops, reassignment and recursion.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Options is the engine's construction-time configuration. It is read-only
// for the engine's lifetime and may be shared across concurrent calls.
type Options struct {
	Limits  guard.Limits
	Profile Profile

	// EnableStaticAnalysis runs the policy analyzer before execution. An
	// unsafe verdict is a warning unless EnforcePolicy turns it into a
	// hard PolicyViolation failure.
	EnableStaticAnalysis bool
	EnforcePolicy        bool

	// EnableTextRepair runs the text-repair collaborator before execution.
	EnableTextRepair bool

	AllowedModules   []string
	AllowedCallables []string
	Denylist         policy.Denylist
}

// DefaultOptions returns the documented defaults: the permissive profile,
// a 2 GiB memory ceiling, a 120 second time ceiling, static analysis off and
// text repair on, with the full builtin registry allow-listed.
func DefaultOptions() Options {
	return Options{
		Limits: guard.Limits{
			MaxMemoryBytes: 2048 << 20,
			MaxTimeSec:     120,
		},
		Profile:          ProfilePermissive,
		EnableTextRepair: true,
		AllowedModules:   RegistryModules(),
		AllowedCallables: RegistryCallables(),
	}
}

// OptionsFromConfig maps the application configuration onto engine options.
// The hardened profile implies pre-execution policy checks: analysis and
// enforcement are forced on regardless of their individual settings.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Limits: guard.Limits{
			MaxMemoryBytes: uint64(cfg.Engine.MaxMemoryMB) << 20,
			MaxTimeSec:     uint32(cfg.Engine.TimeoutSec),
		},
		Profile:              Profile(cfg.Engine.Profile),
		EnableStaticAnalysis: cfg.Engine.EnableStaticAnalysis,
		EnforcePolicy:        cfg.Engine.EnforcePolicy,
		EnableTextRepair:     cfg.Engine.EnableTextRepair,
		AllowedModules:       cfg.Engine.AllowedModules,
		AllowedCallables:     cfg.Engine.AllowedCallables,
		Denylist: policy.Denylist{
			DeniedModules:    cfg.Engine.DeniedModules,
			DeniedCalls:      cfg.Engine.DeniedCalls,
			DeniedAttributes: cfg.Engine.DeniedAttributes,
		},
	}
	if opts.Profile == ProfileHardened {
		opts.EnableStaticAnalysis = true
		opts.EnforcePolicy = true
	}
	return opts
}

// Engine runs untrusted analysis snippets. Each call to Execute runs the
// full state machine once with an independently scoped namespace and guard;
// an Engine is safe for concurrent use.
type Engine struct {
	logger   *zap.Logger
	opts     Options
	analyzer *policy.Analyzer
	guard    *guard.Guard
	repairer TextRepairer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRepairer sets the text-repair collaborator.
func WithRepairer(repairer TextRepairer) Option {
	return func(e *Engine) {
		e.repairer = repairer
	}
}

// WithMemorySampler replaces the guard's process memory sampler.
func WithMemorySampler(sampler guard.MemorySampler) Option {
	return func(e *Engine) {
		e.guard = guard.New(e.logger, e.opts.Limits, guard.WithMemorySampler(sampler))
	}
}

// New creates an Engine with the given configuration.
func New(logger *zap.Logger, opts Options, engineOpts ...Option) *Engine {
	e := &Engine{
		logger:   logger,
		opts:     opts,
		analyzer: policy.New(opts.Denylist),
		guard:    guard.New(logger, opts.Limits),
		repairer: NoopRepairer{},
	}
	for _, opt := range engineOpts {
		opt(e)
	}
	return e
}

// Execute runs one snippet with a default-configured engine. Convenience
// overload of (*Engine).Execute.
func Execute(code string, contextVars map[string]any) Outcome {
	engine := New(zap.NewNop(), DefaultOptions())
	return engine.Execute(context.Background(), code, contextVars)
}

// Execute runs the snippet against the caller's context variables and always
// returns a well-formed Outcome; no failure propagates past this boundary.
func (e *Engine) Execute(ctx context.Context, code string, contextVars map[string]any) Outcome {
	start := time.Now()

	if strings.TrimSpace(code) == "" {
		return failureOutcome(KindEmptyCode, "code is empty", "", "", time.Since(start))
	}

	e.logger.Info("executing snippet",
		zap.Int("code_len", len(code)),
		zap.String("profile", string(e.opts.Profile)))

	if e.opts.EnableStaticAnalysis {
		report := e.analyzer.Analyze(code)
		if !report.Safe {
			e.logger.Warn("static analysis flagged snippet",
				zap.String("risk_level", string(report.RiskLevel)),
				zap.Int("violations", len(report.Violations)))
			if e.opts.EnforcePolicy {
				return failureOutcome(KindPolicyViolation,
					policyMessage(report), "", "", time.Since(start))
			}
		}
	}

	processed := code
	if e.opts.EnableTextRepair {
		processed = e.preprocess(code)
	}

	globals, locals, err := BuildNamespace(e.opts.AllowedModules, e.opts.AllowedCallables, contextVars)
	if err != nil {
		return failureOutcome(KindTypeError, err.Error(), err.Error(), "", time.Since(start))
	}

	predeclared := make(starlark.StringDict, len(globals)+len(locals))
	for name, value := range globals {
		predeclared[name] = value
	}
	for name, value := range locals {
		predeclared[name] = value
	}

	var stdout strings.Builder

	bindings, scope, err := e.run(ctx, processed, predeclared, &stdout)
	if err != nil && processed != code && !engineAborted(scope) {
		// One-shot fallback: the repaired text may itself be the problem.
		e.logger.Info("repaired snippet failed, retrying with original text")
		bindings, scope, err = e.run(ctx, code, predeclared, &stdout)
	}

	elapsed := time.Since(start)

	if err != nil {
		kind, message, trace := classify(err, scope)
		e.logger.Warn("snippet execution failed",
			zap.String("kind", string(kind)),
			zap.String("message", message),
			zap.Duration("elapsed", elapsed))
		return failureOutcome(kind, message, trace, stdout.String(), elapsed)
	}

	var value any
	if bound, ok := bindings[resultName]; ok {
		value = FromStarlark(bound)
	}

	finalLocals := make(map[string]any, len(locals)+len(bindings))
	for name, bound := range locals {
		if !isPrivate(name) {
			finalLocals[name] = FromStarlark(bound)
		}
	}
	for name, bound := range bindings {
		if !isPrivate(name) {
			finalLocals[name] = FromStarlark(bound)
		}
	}

	e.logger.Info("snippet execution completed",
		zap.Duration("elapsed", elapsed),
		zap.Int("stdout_len", stdout.Len()),
		zap.Bool("has_result", value != nil))

	return successOutcome(stdout.String(), elapsed, value, finalLocals)
}

// run executes one attempt inside a fresh thread and guard scope.
func (e *Engine) run(ctx context.Context, src string, predeclared starlark.StringDict, stdout *strings.Builder) (starlark.StringDict, *guard.Scope, error) {
	thread := &starlark.Thread{
		Name: "starbox/run",
		Print: func(_ *starlark.Thread, msg string) {
			stdout.WriteString(msg)
			stdout.WriteByte('\n')
		},
		Load: Loader(e.opts.Profile, e.opts.AllowedModules),
	}

	scope := e.guard.Protect(thread.Cancel)
	defer scope.Release()

	// Caller cancellation reaches the snippet through the same mechanism
	// as the deadline.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("context cancelled")
		case <-stop:
		}
	}()

	bindings, err := starlark.ExecFileOptions(fileOptions, thread, snippetFilename, src, predeclared)
	return bindings, scope, err
}

// preprocess applies the text-repair collaborator. Best-effort: any failure
// keeps the original text.
func (e *Engine) preprocess(code string) string {
	validation := e.repairer.Validate(code)
	if validation.Valid {
		return code
	}
	e.logger.Warn("snippet text failed validation", zap.Strings("errors", validation.Errors))

	repaired := e.repairer.Repair(code)
	if !repaired.Success {
		e.logger.Warn("text repair failed, keeping original text",
			zap.Strings("warnings", repaired.Warnings))
		return code
	}
	e.logger.Info("snippet text repaired", zap.Strings("changes", repaired.Changes))
	return repaired.Fixed
}

// engineAborted reports whether the scope was cancelled by the engine
// itself; such failures are final and must not trigger the retry.
func engineAborted(scope *guard.Scope) bool {
	if scope == nil {
		return false
	}
	if scope.TimedOut() {
		return true
	}
	exceeded, _ := scope.MemoryExceeded()
	return exceeded
}

// isPrivate reports whether a binding is excluded from the outcome. This
// covers the engine's reserved prefix and Starlark's underscore convention.
func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

func policyMessage(report policy.Report) string {
	if len(report.Violations) == 0 {
		return "static analysis rejected the snippet"
	}
	details := make([]string, len(report.Violations))
	for i, violation := range report.Violations {
		details[i] = violation.Detail
	}
	return "static analysis rejected the snippet: " + strings.Join(details, "; ")
}
