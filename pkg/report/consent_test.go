package report

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsk(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		def    bool
		result bool
	}{
		{"yes", "yes\n", false, true},
		{"short yes", "y\n", false, true},
		{"no", "no\n", true, false},
		{"abort", "abort\n", true, false},
		{"empty uses default yes", "\n", true, true},
		{"empty uses default no", "\n", false, false},
		{"retry until valid", "what?\nyes\n", false, true},
		{"case insensitive", "YES\n", false, true},
		{"eof returns default", "", true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := strings.Builder{}
			result := Ask(strings.NewReader(tc.input), &out, "Send report?", tc.def, time.Second)
			assert.Equal(t, tc.result, result)
			assert.Contains(t, out.String(), "Send report?")
		})
	}
}

func TestAskRepromptRestartsTimeout(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	go func() {
		// each answer arrives within the timeout window, but their sum
		// exceeds it; the re-prompt must restart the clock
		time.Sleep(300 * time.Millisecond)
		io.WriteString(writer, "maybe\n")
		time.Sleep(300 * time.Millisecond)
		io.WriteString(writer, "y\n")
	}()

	out := strings.Builder{}
	result := Ask(reader, &out, "Send report?", false, 500*time.Millisecond)
	assert.True(t, result)
	assert.Contains(t, out.String(), "Response not understood")
}

func TestAskTimeoutIsAlwaysNo(t *testing.T) {
	// Even with def set to true, silence must not count as consent.
	blocked, writer := io.Pipe()
	defer writer.Close()

	out := strings.Builder{}
	result := Ask(blocked, &out, "Send report?", true, 10*time.Millisecond)
	assert.False(t, result)
}
