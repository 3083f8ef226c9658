// File: internal/engine/interp.go
// Brief: Per-recipe command interpreter (directives + shell dispatch).

package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"

	"github.com/example/jake/internal/recipe"
)

// maxFrameDepth bounds the conditional frame stack. Nesting beyond it is no
// longer tracked (a documented limitation, not a fatal error).
const maxFrameDepth = 32

// frame records the enclosing executing/branch state saved on @if.
type frame struct {
	executing   bool
	branchTaken bool
}

// interpreter executes one node's command list. One interpreter per
// dispatched node; never shared across goroutines.
type interpreter struct {
	eng   *Engine
	rec   *recipe.Recipe
	scope *Scope

	runner *shellRunner
	out    io.Writer

	frames      []frame
	overflow    int
	executing   bool
	branchTaken bool
	ignoreNext  bool
}

// defaultExecutor is the NodeExecutor that runs recipe bodies through the
// directive interpreter.
type defaultExecutor struct {
	eng *Engine
}

func (d *defaultExecutor) RunNode(ctx context.Context, rec *recipe.Recipe, scope *Scope) (bool, error) {
	if !rec.RunnableOn(runtime.GOOS) {
		return true, nil
	}
	in := d.eng.newInterpreter(rec, scope)
	return in.runNode(ctx)
}

func (e *Engine) newInterpreter(rec *recipe.Recipe, scope *Scope) *interpreter {
	for _, p := range rec.Params {
		if _, ok := scope.Get(p.Name); !ok {
			scope.Bind(p.Name, p.Default)
		}
	}
	return &interpreter{
		eng:       e,
		rec:       rec,
		scope:     scope,
		executing: true,
		out:       e.out,
		runner: &shellRunner{
			shell:  e.shell,
			dir:    e.opts.WorkDir,
			env:    commandEnv(rec),
			stdout: e.out,
			stderr: e.errOut,
		},
	}
}

func (in *interpreter) runNode(ctx context.Context) (skipped bool, err error) {
	if err := in.checkNeeds(); err != nil {
		return false, err
	}

	if in.rec.Kind == recipe.KindFile && in.upToDate() {
		return true, nil
	}

	if err := in.runHooks(ctx, in.rec.Hooks.Before, "before"); err != nil {
		return false, err
	}
	if err := in.runCommands(ctx, in.rec.Commands); err != nil {
		return false, err
	}
	if err := in.runHooks(ctx, in.rec.Hooks.After, "after"); err != nil {
		return false, err
	}

	if in.rec.Kind == recipe.KindFile && !in.eng.opts.DryRun {
		in.recordOutputs()
	}
	return false, nil
}

// checkNeeds verifies every @needs line once, before any body command runs.
func (in *interpreter) checkNeeds() error {
	for _, c := range in.rec.Commands {
		if c.Directive != recipe.DirectiveNeeds {
			continue
		}
		spec, err := parseNeeds(in.scope.Expand(c.Line))
		if err != nil {
			return err
		}
		if !commandAvailable(spec.Command) {
			return &NeedsError{
				Recipe:  in.rec.Name,
				Command: spec.Command,
				Hint:    spec.Hint,
				Remedy:  spec.Remedy,
			}
		}
	}
	return nil
}

// upToDate reports whether a file recipe's output exists with no stale file
// dependency. No cache collaborator means always stale.
func (in *interpreter) upToDate() bool {
	cache := in.eng.opts.Cache
	if cache == nil {
		return false
	}
	output := in.scope.Expand(in.rec.Output)
	if cache.IsStale(output) {
		return false
	}
	for _, pattern := range in.rec.FileDeps {
		if cache.IsGlobStale(in.scope.Expand(pattern)) {
			return false
		}
	}
	return true
}

// recordOutputs refreshes cache rows after a successful file-recipe run.
// Best-effort: cache write problems never fail the node.
func (in *interpreter) recordOutputs() {
	cache := in.eng.opts.Cache
	if cache == nil {
		return
	}
	cache.Update(in.scope.Expand(in.rec.Output))
	for _, pattern := range in.rec.FileDeps {
		matches, err := filepath.Glob(in.scope.Expand(pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			cache.Update(m)
		}
	}
}

func (in *interpreter) runHooks(ctx context.Context, lines []string, phase string) error {
	for _, line := range lines {
		expanded := in.scope.Expand(line)
		if err := in.runner.run(ctx, expanded); err != nil {
			return fmt.Errorf("%w: %s hook %q: %v", ErrCommandFailed, phase, expanded, err)
		}
	}
	return nil
}

func (in *interpreter) runCommands(ctx context.Context, cmds []recipe.Command) error {
	for pc := 0; pc < len(cmds); pc++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := cmds[pc]
		switch c.Directive {
		case recipe.DirectiveIf:
			if err := in.enterIf(c.Line); err != nil {
				return err
			}
		case recipe.DirectiveElif:
			if err := in.enterElif(c.Line); err != nil {
				return err
			}
		case recipe.DirectiveElse:
			in.enterElse()
		case recipe.DirectiveEnd:
			in.exitEnd()
		case recipe.DirectiveEach:
			end, err := findBlockEnd(cmds, pc)
			if err != nil {
				return err
			}
			if in.executing {
				if err := in.runEach(ctx, c.Line, cmds[pc+1:end]); err != nil {
					return err
				}
			}
			pc = end
		case recipe.DirectiveIgnore:
			if in.executing {
				in.ignoreNext = true
			}
		case recipe.DirectiveNeeds:
			// Verified up front in checkNeeds.
		case recipe.DirectiveConfirm, recipe.DirectiveCache, recipe.DirectiveWatch:
			// Recognized but inert: interactive prompting is unsafe under
			// parallelism, so @confirm is auto-approved.
		case recipe.DirectiveLaunch:
			if in.executing && !in.eng.opts.DryRun {
				launchDetached(in.scope.Expand(c.Line))
			}
		default:
			if err := in.runPlain(ctx, c.Line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *interpreter) runPlain(ctx context.Context, raw string) error {
	if !in.executing {
		return nil
	}
	line := in.scope.Expand(raw)
	suppress := in.ignoreNext
	in.ignoreNext = false

	// Verbose wins over recipe-level quiet so debugging can see every line.
	quiet := (in.eng.opts.Quiet || in.rec.Quiet) && !in.eng.opts.Verbose

	if in.eng.opts.DryRun {
		fmt.Fprintln(in.out, line)
		return nil
	}
	if !quiet {
		fmt.Fprintln(in.out, line)
	}
	if err := in.runner.run(ctx, line); err != nil {
		if suppress {
			in.eng.log.Debug("command failure suppressed by @ignore",
				zap.String("recipe", in.rec.Name), zap.String("command", line), zap.Error(err))
			return nil
		}
		return fmt.Errorf("%w: %q: %v", ErrCommandFailed, line, err)
	}
	return nil
}

// runEach expands the item list, splits it shell-style, and runs the body
// once per item with "item" bound in the node-local scope. The previous
// binding is restored so nested loops shadow correctly.
func (in *interpreter) runEach(ctx context.Context, line string, body []recipe.Command) error {
	items, err := shellwords.Parse(in.scope.Expand(line))
	if err != nil {
		return fmt.Errorf("bad @each list: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	prev, had := in.scope.LocalGet("item")
	defer in.scope.Restore("item", prev, had)
	for _, item := range items {
		in.scope.Bind("item", item)
		if err := in.runCommands(ctx, body); err != nil {
			return err
		}
	}
	return nil
}

func (in *interpreter) enterIf(cond string) error {
	if len(in.frames) >= maxFrameDepth {
		in.overflow++
		return nil
	}
	in.frames = append(in.frames, frame{executing: in.executing, branchTaken: in.branchTaken})
	if !in.executing {
		in.branchTaken = false
		return nil
	}
	v, err := in.eng.cond.Evaluate(cond, in.scope)
	if err != nil {
		return err
	}
	in.executing = v
	in.branchTaken = v
	return nil
}

func (in *interpreter) enterElif(cond string) error {
	if !in.parentExecuting() || in.branchTaken {
		in.executing = false
		return nil
	}
	v, err := in.eng.cond.Evaluate(cond, in.scope)
	if err != nil {
		return err
	}
	in.executing = v
	if v {
		in.branchTaken = true
	}
	return nil
}

func (in *interpreter) enterElse() {
	in.executing = in.parentExecuting() && !in.branchTaken
	if in.executing {
		in.branchTaken = true
	}
}

func (in *interpreter) exitEnd() {
	if in.overflow > 0 {
		in.overflow--
		return
	}
	if len(in.frames) == 0 {
		in.executing = true
		in.branchTaken = false
		return
	}
	f := in.frames[len(in.frames)-1]
	in.frames = in.frames[:len(in.frames)-1]
	in.executing = f.executing
	in.branchTaken = f.branchTaken
}

func (in *interpreter) parentExecuting() bool {
	if len(in.frames) == 0 {
		return true
	}
	return in.frames[len(in.frames)-1].executing
}

// findBlockEnd returns the index of the @end matching the block opener at
// start, honoring nested if/each depth.
func findBlockEnd(cmds []recipe.Command, start int) (int, error) {
	depth := 1
	for i := start + 1; i < len(cmds); i++ {
		switch cmds[i].Directive {
		case recipe.DirectiveIf, recipe.DirectiveEach:
			depth++
		case recipe.DirectiveEnd:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated @%s block", cmds[start].Directive)
}

func commandEnv(rec *recipe.Recipe) []string {
	env := append([]string(nil), os.Environ()...)
	return append(env, "JAKE_RECIPE="+rec.Name, "JAKE_RECIPE_KIND="+string(rec.Kind))
}
