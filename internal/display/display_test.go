package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FormatDate(t *testing.T) {
	testCases := []struct {
		input  string
		expect string
	}{
		{input: "", expect: "-"},
		{input: "  ", expect: "-"},
		{input: "2024-05-01", expect: "5/1/2024"},
		{input: "2024-12-31T23:59:59Z", expect: "12/31/2024"},
		{input: "soon", expect: "soon"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expect, FormatDate(tc.input))
		})
	}
}

func Test_TruncateText(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("-", TruncateText("", 10))
	assert.Equal("short", TruncateText("short", 10))
	assert.Equal("exactly10!", TruncateText("exactly10!", 10))
	assert.Equal("abc...", TruncateText("abcdef", 3))
	assert.Equal("héll...", TruncateText("héllo wörld", 4))

	long := strings.Repeat("x", 60)
	assert.Equal(strings.Repeat("x", 50)+"...", TruncateText(long, 0))
}
