package casefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = "# Cases\n" +
	"\n" +
	"Some prose.\n" +
	"\n" +
	"## Test: simple\n" +
	"\n" +
	"```toy\n" +
	"x = 1;\n" +
	"return x;\n" +
	"```\n" +
	"\n" +
	"```result\n" +
	"1\n" +
	"```\n" +
	"\n" +
	"## Test: failing\n" +
	"\n" +
	"```toy\n" +
	"return y;\n" +
	"```\n" +
	"\n" +
	"```error\n" +
	"unbound variable: y\n" +
	"```\n" +
	"\n" +
	"```ir\n" +
	"  alloca\n" +
	"\n" +
	"ret i64\n" +
	"```\n"

func TestParse(t *testing.T) {
	cs, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cs, 2)

	assert.Equal(t, "simple", cs[0].Name)
	assert.Equal(t, 5, cs[0].Line)
	assert.Equal(t, "x = 1;\nreturn x;", cs[0].Program)
	require.Len(t, cs[0].Assertions, 1)
	assert.Equal(t, KindResult, cs[0].Assertions[0].Kind)
	assert.Equal(t, "1", cs[0].Assertions[0].Content)

	assert.Equal(t, "failing", cs[1].Name)
	require.Len(t, cs[1].Assertions, 2)
	assert.Equal(t, KindError, cs[1].Assertions[0].Kind)
	assert.Equal(t, []string{"alloca", "ret i64"}, cs[1].Assertions[1].Lines())
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
	}{
		{"fence_outside", "```toy\nreturn 1;\n```\n"},
		{"no_program", "## Test: a\n\n```result\n1\n```\n"},
		{"no_assertions", "## Test: a\n\n```toy\nreturn 1;\n```\n"},
		{"unknown_fence", "## Test: a\n\n```toy\nreturn 1;\n```\n\n```wat\n1\n```\n"},
		{"two_programs", "## Test: a\n\n```toy\nreturn 1;\n```\n\n```toy\nreturn 2;\n```\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestUntaggedFencesAreProse(t *testing.T) {
	cs, err := Parse([]byte("```\nanything\n```\n\n## Test: a\n\n```toy\nreturn 1;\n```\n\n```\nnote\n```\n\n```result\n1\n```\n"))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Len(t, cs[0].Assertions, 1)
}
