package check

import (
	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/value"
)

// Default names for captures written without `as`.
const (
	DefaultStderrName   = "error_message"
	DefaultExitCodeName = "exit_code"
)

// endpointMode reports which endpoint constructor a stage expression
// calls directly, or "".
func endpointMode(e ast.Expr) string {
	call, ok := e.(*ast.Call)
	if !ok {
		return ""
	}
	switch call.Builtin {
	case "open", "write", "append":
		return call.Builtin
	}
	return ""
}

// exec validates a pipeline's shape and rewrites its captures into
// declared bindings in the enclosing scope.
func (c *checker) exec(x *ast.Exec) (value.Type, error) {
	last := len(x.Stages) - 1
	result := value.StringType
	seen := make(map[string]bool)

	for i := range x.Stages {
		stage := &x.Stages[i]
		t, err := c.expr(stage.X)
		if err != nil {
			return value.Type{}, err
		}

		pos := stage.X.Span().Start
		switch t.Kind {
		case value.TypeCommand:
			// Commands may appear anywhere.

		case value.TypeString:
			if i != 0 {
				return value.Type{}, c.errorf(diag.PipelineShapeError, pos,
					"a string may only be the first stage of a pipeline")
			}

		case value.TypeFile:
			if i != 0 && i != last {
				return value.Type{}, c.errorf(diag.PipelineShapeError, pos,
					"a file endpoint may only start or end a pipeline")
			}
			// A literal open/write/append call pins the endpoint's mode;
			// endpoints reaching a stage through a binding are narrowed at
			// run time instead.
			switch endpointMode(stage.X) {
			case "open":
				if i != 0 {
					return value.Type{}, c.errorf(diag.PipelineShapeError, pos,
						"a file endpoint opened for reading may only start a pipeline")
				}
			case "write", "append":
				if i != last {
					return value.Type{}, c.errorf(diag.PipelineShapeError, pos,
						"a file endpoint opened for writing may only end a pipeline")
				}
			}
			if i == last && i != 0 {
				result = value.UnitType
			}

		default:
			return value.Type{}, c.errorf(diag.PipelineShapeError, pos,
				"a pipeline stage must be a command, a string, or a file endpoint, found %s", t)
		}

		if len(stage.Captures) > 0 && t.Kind != value.TypeCommand {
			return value.Type{}, c.errorf(diag.PipelineShapeError, pos,
				"captures may only be attached to command stages")
		}

		for j := range stage.Captures {
			capture := &stage.Captures[j]
			if capture.Name == "" {
				switch capture.Kind {
				case ast.CaptureStderr:
					capture.Name = DefaultStderrName
				case ast.CaptureExitCode:
					capture.Name = DefaultExitCodeName
				}
			}
			if seen[capture.Name] {
				return value.Type{}, c.errorf(diag.PipelineShapeError, capture.Span.Start,
					"capture name %q is used twice in this pipeline", capture.Name)
			}
			seen[capture.Name] = true

			capType := value.StringType
			if capture.Kind == ast.CaptureExitCode {
				capType = value.IntType
			}
			sym, err := c.declare(capture.Name, capType, false, true, capture.Span.Start)
			if err != nil {
				return value.Type{}, err
			}
			capture.Slot = sym.slot
		}
	}
	return result, nil
}
