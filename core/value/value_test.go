package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFmt(t *testing.T) {
	cases := []struct {
		name     string
		value    Value
		expected string
	}{
		{"string verbatim", Str(`say "hi"`), `say "hi"`},
		{"integer", Int(-42), "-42"},
		{"boolean", Bool(true), "true"},
		{"array", NewArray([]Value{Int(1), Int(2), Int(3)}, false), "[1, 2, 3]"},
		{
			"nested array",
			NewArray([]Value{NewArray([]Value{Str("a")}, false)}, true),
			"[[a]]",
		},
		{
			"record",
			Value{Kind: KindRecord, Rec: &Record{Names: []string{"a", "b"}, Vals: []Value{Int(1), Str("x")}}},
			"{a: 1, b: x}",
		},
		{
			"command",
			Value{Kind: KindCommand, Cmd: &Command{Program: "grep", Args: []string{"-v", "thing"}}},
			"`grep -v thing`",
		},
		{
			"file endpoint",
			Value{Kind: KindFile, File: &File{Path: "out.txt", Mode: FileWrite}},
			`<file_endpoint:write("out.txt")>`,
		},
		{"unit", Unit, "unit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.value.Fmt())
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Str("a").Equal(Str("a")))
	assert.False(t, Str("a").Equal(Str("b")))
	assert.False(t, Str("1").Equal(Int(1)))
	assert.True(t,
		NewArray([]Value{Int(1), Int(2)}, true).Equal(NewArray([]Value{Int(1), Int(2)}, false)),
		"mutability does not participate in equality")
	assert.False(t, NewArray([]Value{Int(1)}, false).Equal(NewArray([]Value{Int(2)}, false)))
}

func TestShallowCopy(t *testing.T) {
	original := NewArray([]Value{Int(1), Int(2)}, true)
	copied := original.ShallowCopy()

	copied.Arr.Elems[0] = Int(99)
	assert.Equal(t, int64(1), original.Arr.Elems[0].Int)

	copied.Arr.Elems = append(copied.Arr.Elems, Int(3))
	assert.Len(t, original.Arr.Elems, 2)
}

func TestTypeAssignability(t *testing.T) {
	mutInts := ArrayType(IntType, true)
	ints := ArrayType(IntType, false)

	assert.True(t, mutInts.AssignableTo(ints), "a mut value satisfies an immutable use")
	assert.False(t, ints.AssignableTo(mutInts), "an immutable value cannot satisfy a mut use")
	assert.True(t, ints.SameShape(mutInts))
	assert.False(t, ints.SameShape(ArrayType(StringType, false)))

	rec := RecordType([]Field{{Name: "a", Type: IntType}}, false)
	same := RecordType([]Field{{Name: "a", Type: IntType}}, true)
	other := RecordType([]Field{{Name: "b", Type: IntType}}, false)
	assert.True(t, rec.SameShape(same))
	assert.False(t, rec.SameShape(other))
}
