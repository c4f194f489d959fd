package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// Ask prints a yes/no prompt and waits for an answer. def controls how an
// empty answer is interpreted. If the user doesn't respond within timeout the
// answer is "no"; consent is never assumed silently. Unrecognized answers
// re-prompt.
func Ask(in io.Reader, out io.Writer, prompt string, def bool, timeout time.Duration) bool {
	yes := map[string]bool{"yes": true, "y": true}
	no := map[string]bool{"no": true, "n": true, "abort": true}
	if def {
		yes[""] = true
	} else {
		no[""] = true
	}

	answers := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			answers <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
		close(answers)
	}()

	fmt.Fprint(out, prompt)

	var timer <-chan time.Time
	if timeout > 0 {
		timer = time.After(timeout)
	}

	for {
		select {
		case answer, ok := <-answers:
			if !ok {
				return def
			}
			if yes[answer] {
				return true
			}
			if no[answer] {
				return false
			}
			fmt.Fprint(out, "Response not understood. Valid options are 'yes' and 'no'. ")
			// re-prompting restarts the clock
			if timeout > 0 {
				timer = time.After(timeout)
			}
		case <-timer:
			fmt.Fprintln(out)
			return false
		}
	}
}
