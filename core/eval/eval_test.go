package eval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nashlang/nash/core/check"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/parser"
)

type result struct {
	stdout string
	stderr string
	code   int
	err    error
}

func runScript(t *testing.T, fs afero.Fs, stdin, src string) result {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, check.Check(prog))

	var stdout, stderr bytes.Buffer
	m := New(prog, Options{
		Fs:     fs,
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	code, err := m.Run(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code, err: err}
}

func runOK(t *testing.T, src string) result {
	t.Helper()
	r := runScript(t, afero.NewMemMapFs(), "", src)
	require.NoError(t, r.err)
	require.Equal(t, 0, r.code)
	return r
}

func TestStringThroughFilter(t *testing.T) {
	r := runOK(t, "out(exec \"test\" => `grep t`);")
	assert.Equal(t, "test\n", r.stdout)
}

func TestFileRoundTrip(t *testing.T) {
	r := runOK(t, `
exec "hello" => write("/tmp/x");
out(exec open("/tmp/x"));
`)
	assert.Equal(t, "hello\n", r.stdout)
}

func TestAppendConcatenates(t *testing.T) {
	r := runOK(t, `
exec "a" => write("/tmp/p");
exec "b" => append("/tmp/p");
exec "c" => append("/tmp/p");
out(exec open("/tmp/p"));
`)
	assert.Equal(t, "abc\n", r.stdout)
}

func TestCaptureDowngradesNonZeroExit(t *testing.T) {
	r := runOK(t, "var output = exec `cat nothing`|cap exit_code| => `cat`;\n"+
		"out(\"exit code: ${exit_code.fmt()}\");\n"+
		"out(\"output: ${output}\");")
	assert.Contains(t, r.stdout, "exit code: 1\n")
	assert.Contains(t, r.stdout, "output: \n")
}

func TestUncapturedNonZeroExitFails(t *testing.T) {
	r := runScript(t, afero.NewMemMapFs(), "", "exec `cat nothing`;")
	require.Error(t, r.err)
	de, ok := r.err.(*diag.Error)
	require.True(t, ok)
	assert.Equal(t, diag.NonZeroExit, de.Kind)
	assert.Equal(t, 1, r.code)
}

func TestCaptureStderr(t *testing.T) {
	r := runOK(t, "exec `sh -c \"echo oops 1>&2\"`|cap stderr as msg|;\nout(msg);")
	assert.Equal(t, "oops\n\n", r.stdout, "the captured stream keeps its newline, out adds one")
	assert.Empty(t, r.stderr)
}

func TestArrayPush(t *testing.T) {
	r := runOK(t, `
var array = mut [1, 2, 3];
array.push(4);
out(array.fmt());
`)
	assert.Equal(t, "[1, 2, 3, 4]\n", r.stdout)
}

func TestInterpolationIntoCommandIsOneArgument(t *testing.T) {
	r := runOK(t, "var arg = \"a b\";\nout(exec `printf %s ${arg}`);")
	assert.Equal(t, "a b\n", r.stdout)
}

func TestControlFlow(t *testing.T) {
	r := runOK(t, `
var mut index = 0;
while index < 6 {
    index = index + 1;
    if index == 2 {
        continue;
    };
    if index == 5 {
        break;
    };
    out(index.fmt());
};
`)
	assert.Equal(t, "1\n3\n4\n", r.stdout)
}

func TestForLoop(t *testing.T) {
	r := runOK(t, `
for item in ["x", "y", "z"] {
    out(item);
};
`)
	assert.Equal(t, "x\ny\nz\n", r.stdout)
}

func TestFunctions(t *testing.T) {
	r := runOK(t, `
func describe(name: string, count: integer): string {
    return "${name}: ${count.fmt()}";
}
out(describe("total", 3 * 7));
`)
	assert.Equal(t, "total: 21\n", r.stdout)
}

func TestMutArrayParamShares(t *testing.T) {
	r := runOK(t, `
func fill(items: mut [integer]) {
    items.push(9);
}
var items = mut [1];
fill(items);
out(items.fmt());
`)
	assert.Equal(t, "[1, 9]\n", r.stdout)
}

func TestRecords(t *testing.T) {
	r := runOK(t, `
var point = mut { x: 1, y: 2 };
point.x = 10;
out(point.fmt());
out(point.y.fmt());
`)
	assert.Equal(t, "{x: 10, y: 2}\n2\n", r.stdout)
}

func TestIndexAssignment(t *testing.T) {
	r := runOK(t, `
var items = mut ["a", "b"];
items[1] = "c";
out(items.fmt());
out(items[0]);
`)
	assert.Equal(t, "[a, c]\na\n", r.stdout)
}

func TestExit(t *testing.T) {
	r := runScript(t, afero.NewMemMapFs(), "", `
out("before");
exit 69;
out("after");
`)
	require.NoError(t, r.err)
	assert.Equal(t, 69, r.code)
	assert.Equal(t, "before\n", r.stdout)
}

func TestExitFromFunction(t *testing.T) {
	r := runScript(t, afero.NewMemMapFs(), "", `
func main() {
    for value in [1, 2, 3, 4, 5] {
        out(value.fmt());
        if value == 4 {
            exit value;
        };
    };
}
main();
`)
	require.NoError(t, r.err)
	assert.Equal(t, 4, r.code)
	assert.Equal(t, "1\n2\n3\n4\n", r.stdout)
}

func TestExitCodeRange(t *testing.T) {
	r := runScript(t, afero.NewMemMapFs(), "", `exit 1000;`)
	require.Error(t, r.err)
	assert.Equal(t, 1, r.code)
}

func TestRuntimeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"division by zero", `var mut z = 0; out((1 / z).fmt());`},
		{"pop empty array", `var a = mut [1]; a.pop(); a.pop();`},
		{"index out of bounds", `var a = [1]; out(a[3].fmt());`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := runScript(t, afero.NewMemMapFs(), "", tc.src)
			require.Error(t, r.err)
			de, ok := r.err.(*diag.Error)
			require.True(t, ok)
			assert.Equal(t, diag.RuntimeError, de.Kind)
		})
	}
}

func TestReadStripsLineEndings(t *testing.T) {
	r := runScript(t, afero.NewMemMapFs(), "first\r\nsecond\n", `
out(read());
out(read());
`)
	require.NoError(t, r.err)
	assert.Equal(t, "first\nsecond\n", r.stdout)
}

func TestGlobIsSorted(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"/data/b.txt", "/data/a.txt", "/data/c.log"} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("x"), 0o644))
	}
	r := runScript(t, fs, "", `
for path in glob("/data/*.txt") {
    out(path);
};
`)
	require.NoError(t, r.err)
	assert.Equal(t, "/data/a.txt\n/data/b.txt\n", r.stdout)
}

func TestLargeTransferThroughPipeline(t *testing.T) {
	r := runOK(t, `
var chunk = "0123456789abcdef0123456789abcdef";
var mut i = 0;
while i < 1024 {
    exec chunk => append("/tmp/big");
    i = i + 1;
};
var content = exec open("/tmp/big") => `+"`cat`"+`;
out((chunk.len() * 1024).fmt());
out(content.len().fmt());
`)
	lines := strings.Split(strings.TrimSuffix(r.stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, lines[0], lines[1])
	assert.Equal(t, "32768", lines[0])
}

func TestShapeErrorsAtRuntime(t *testing.T) {
	// A file endpoint reaching a stage through a binding is narrowed when
	// the pipeline is built.
	r := runScript(t, afero.NewMemMapFs(), "", `
var sink = write("/tmp/q");
exec sink => `+"`cat`"+`;
`)
	require.Error(t, r.err)
	de, ok := r.err.(*diag.Error)
	require.True(t, ok)
	assert.Equal(t, diag.PipelineShapeError, de.Kind)
}

func TestErrBuiltinWritesStderr(t *testing.T) {
	r := runOK(t, `err("warning");`)
	assert.Equal(t, "warning\n", r.stderr)
	assert.Empty(t, r.stdout)
}
