package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"debug":   "DEBUG",
		"info":    "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
		"":        "INFO",
	}
	for input, want := range cases {
		assert.Equal(t, want, parseLogLevel(input), "input %q", input)
	}
}

func TestInitCLILogger(t *testing.T) {
	InitCLILogger("marklens-test", true)
	assert.NotNil(t, CLILogger)
}
