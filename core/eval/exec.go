package eval

import (
	"context"
	"strings"

	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/pipeline"
	"github.com/nashlang/nash/core/value"
)

// captureSlots remembers which frame slots a plan stage publishes into.
type captureSlots struct {
	stage      int // index into plan.Stages
	stderrSlot int
	exitSlot   int
	hasStderr  bool
	hasExit    bool
}

// exec evaluates a pipeline expression: stage expressions are resolved to
// a declarative plan, the engine runs it, and captured bindings are
// published into the enclosing frame only after the run succeeds.
func (m *Machine) exec(ctx context.Context, frame []value.Value, x *ast.Exec) (value.Value, error) {
	plan := &pipeline.Plan{}
	var captures []captureSlots
	last := len(x.Stages) - 1

	for i := range x.Stages {
		stage := &x.Stages[i]
		v, err := m.expr(ctx, frame, stage.X)
		if err != nil {
			return value.Unit, err
		}
		pos := stage.X.Span().Start

		switch v.Kind {
		case value.KindString:
			plan.Source = &pipeline.Source{Kind: pipeline.SourceLiteral, Literal: v.Str}

		case value.KindFile:
			switch v.File.Mode {
			case value.FileOpen:
				if i != 0 {
					return value.Unit, diag.New(diag.PipelineShapeError, pos,
						"a file endpoint opened for reading may only start a pipeline")
				}
				plan.Source = &pipeline.Source{Kind: pipeline.SourceFile, Path: v.File.Path}
			case value.FileWrite, value.FileAppend:
				if i != last {
					return value.Unit, diag.New(diag.PipelineShapeError, pos,
						"a file endpoint opened for writing may only end a pipeline")
				}
				kind := pipeline.DestWrite
				if v.File.Mode == value.FileAppend {
					kind = pipeline.DestAppend
				}
				plan.Dest = &pipeline.Dest{Kind: kind, Path: v.File.Path}
			}

		case value.KindCommand:
			planStage := pipeline.Stage{Program: v.Cmd.Program, Args: v.Cmd.Args}
			slots := captureSlots{stage: len(plan.Stages)}
			for _, capture := range stage.Captures {
				switch capture.Kind {
				case ast.CaptureStderr:
					planStage.CaptureStderr = true
					slots.hasStderr = true
					slots.stderrSlot = capture.Slot
				case ast.CaptureExitCode:
					planStage.CaptureExit = true
					slots.hasExit = true
					slots.exitSlot = capture.Slot
				}
			}
			if slots.hasStderr || slots.hasExit {
				captures = append(captures, slots)
			}
			plan.Stages = append(plan.Stages, planStage)

		default:
			return value.Unit, diag.New(diag.PipelineShapeError, pos,
				"a pipeline stage must be a command, a string, or a file endpoint, found %s", v.Kind)
		}
	}

	if m.tracer != nil {
		m.tracer.PipelineStarted(plan)
	}
	out, err := m.engine.Run(ctx, plan)
	if m.tracer != nil {
		m.tracer.PipelineFinished(plan, out, err)
	}
	if err != nil {
		return value.Unit, diag.WithPos(err, x.Span().Start)
	}

	for _, slots := range captures {
		result := out.Stages[slots.stage]
		if slots.hasStderr {
			frame[slots.stderrSlot] = value.Str(result.Stderr)
		}
		if slots.hasExit {
			frame[slots.exitSlot] = value.Int(int64(result.ExitCode))
		}
	}

	if plan.Dest != nil {
		// A lone write/append endpoint still types as a string-valued
		// pipeline; everything longer with a sink is unit.
		if len(x.Stages) == 1 {
			return value.Str(""), nil
		}
		return value.Unit, nil
	}
	return value.Str(trimFinalNewline(out.Stdout)), nil
}

// trimFinalNewline strips one trailing newline ("\n" or "\r\n") from
// captured stdout. Unlike shell command substitution, only the last
// newline is removed.
func trimFinalNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
