package core_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/nashlang/nash/core"
)

// TestScriptsGolden runs every script under testdata/scripts and compares
// its observable behavior against a golden fixture.
func TestScriptsGolden(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("testdata", "scripts", "*.nash"))
	require.NoError(t, err)
	require.NotEmpty(t, scripts)

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)

	for _, script := range scripts {
		name := strings.TrimSuffix(filepath.Base(script), ".nash")
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(script)
			require.NoError(t, err)

			var stdout, stderr bytes.Buffer
			interp := core.NewInterp(afero.NewMemMapFs(),
				core.WithStdio(strings.NewReader(""), &stdout, &stderr),
			)

			code, runErr := interp.RunScript(context.Background(), string(src))
			if runErr != nil {
				fmt.Fprintln(&stderr, core.Diagnose(runErr, filepath.Base(script)))
			}

			var report bytes.Buffer
			report.WriteString("### stdout\n")
			report.Write(stdout.Bytes())
			report.WriteString("### stderr\n")
			report.Write(stderr.Bytes())
			fmt.Fprintf(&report, "### exit code\n%d\n", code)

			g.Assert(t, name, report.Bytes())
		})
	}
}

func TestCheckScript(t *testing.T) {
	interp := core.NewInterp(afero.NewMemMapFs())
	require.NoError(t, interp.CheckScript(`out("well formed");`))
	require.Error(t, interp.CheckScript(`out(undeclared);`))
}

func TestDiagnoseFormat(t *testing.T) {
	interp := core.NewInterp(afero.NewMemMapFs())
	err := interp.CheckScript("var x = ;")
	require.Error(t, err)
	line := core.Diagnose(err, "script.nash")
	require.True(t, strings.HasPrefix(line, "error: "), line)
	require.Contains(t, line, " at script.nash:1:9")
}
