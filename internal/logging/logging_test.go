package logging

import (
	"path/filepath"
	"testing"

	"github.com/celerix-dev/realtrack/pkg/sdk"
	"github.com/stretchr/testify/assert"
)

func Test_New(t *testing.T) {
	testCases := []struct {
		name       string
		provider   Provider
		filename   string
		expectType sdk.Logger
		expectErr  bool
	}{
		{
			name:       "jellog log",
			provider:   Jellog,
			filename:   "test-jellog.log",
			expectType: jellogLogger{},
		},
		{
			name:       "standard log",
			provider:   StdLog,
			filename:   "test-std.log",
			expectType: stdLogger{},
		},
		{
			name:       "None provider discards",
			provider:   None,
			filename:   "test-none.log",
			expectType: sdk.NopLogger{},
		},
		{
			name:      "unknown provider is an error",
			provider:  Provider(-1),
			filename:  "test-unknown.log",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			tempDir := t.TempDir()
			filePath := filepath.Join(tempDir, tc.filename)

			actual, err := New(tc.provider, "test", filePath)

			if tc.expectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
				assert.IsType(tc.expectType, actual)
			}
		})
	}
}

func Test_ParseProvider(t *testing.T) {
	testCases := []struct {
		input     string
		expect    Provider
		expectErr bool
	}{
		{input: "", expect: None},
		{input: "none", expect: None},
		{input: "JELLOG", expect: Jellog},
		{input: "std", expect: StdLog},
		{input: "stdlog", expect: StdLog},
		{input: "syslog", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseProvider(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}
