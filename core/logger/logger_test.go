package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nashlang/nash/core/pipeline"
)

func fixedLogger(buf *bytes.Buffer) *Logger {
	l := New(buf)
	l.now = func() time.Time {
		return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return l
}

func TestPipelineEvents(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf)

	plan := &pipeline.Plan{
		Source: &pipeline.Source{Kind: pipeline.SourceFile, Path: "in.txt"},
		Stages: []pipeline.Stage{{Program: "grep", Args: []string{"x"}}},
		Dest:   &pipeline.Dest{Kind: pipeline.DestWrite, Path: "out.txt"},
	}

	l.PipelineStarted(plan)
	l.PipelineFinished(plan, &pipeline.Output{Stages: []pipeline.StageResult{{ExitCode: 2}}}, nil)
	l.PipelineFinished(plan, nil, errors.New("boom"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var started Entry
	require.NoError(t, json.Unmarshal(lines[0], &started))
	assert.Equal(t, "pipeline_started", started.Event)
	assert.Equal(t, []string{"grep"}, started.Stages)
	assert.Equal(t, "in.txt", started.Source)
	assert.Equal(t, "out.txt", started.Dest)
	assert.Equal(t, "2006-01-02T03:04:05Z", started.Time)

	var finished Entry
	require.NoError(t, json.Unmarshal(lines[1], &finished))
	assert.Equal(t, []int{2}, finished.ExitCodes)
	assert.Empty(t, finished.Error)

	var failed Entry
	require.NoError(t, json.Unmarshal(lines[2], &failed))
	assert.Equal(t, "boom", failed.Error)
}

func TestLiteralSourceIsNotLeaked(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf)

	l.PipelineStarted(&pipeline.Plan{
		Source: &pipeline.Source{Kind: pipeline.SourceLiteral, Literal: "secret data"},
	})

	assert.NotContains(t, buf.String(), "secret data")
	assert.Contains(t, buf.String(), `"source":"literal"`)
}
