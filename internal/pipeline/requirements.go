package pipeline

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/skillforge/internal/gate"
)

// Requirement summaries handed to the generator. These describe what each
// piece of content must satisfy; the generator decides how.

func implementationRequirements(name, prompt string) string {
	return fmt.Sprintf(`Write scripts/run.sh for the skill %q.

Behavior: %s

Constraints:
- first line must be "#!/usr/bin/env bash"
- read input from standard input and/or CLI flags
- exit 0 on success, 1 on handled input errors, 2 on usage errors
- write human-readable error messages to stderr on non-zero exit`, name, prompt)
}

func testRequirements(g gate.Gate, name, prompt string) string {
	var focus string
	switch g {
	case gate.Smoke:
		focus = "a single assertion covering the primary happy path"
	case gate.Contract:
		focus = "input/output boundary behavior: error exit codes (1 for handled input errors, 2 for usage errors) and output format validity"
	default:
		focus = "edge cases, larger inputs, and realistic end-to-end scenarios"
	}

	return fmt.Sprintf(`Write %s-gate assertions for the skill %q (behavior: %s).

The harness functions pass, fail, assert_eq, assert_contains and
assert_exit_code are already defined above your code in scripts/test.sh;
emit only assertion code that calls them. Invoke the skill as
"$(dirname "$0")/run.sh". Focus: %s.`, g, name, prompt, focus)
}

func hardenRequirements(g gate.Gate, name, prompt string) string {
	return fmt.Sprintf(`Harden scripts/run.sh for the skill %q (behavior: %s) so it
satisfies the %s gate: keep all previously passing behavior intact and extend
the implementation to cover the new assertions. Same exit-code contract:
0 success, 1 handled input errors, 2 usage errors.`, name, prompt, g)
}

func reviseRequirements(g gate.Gate, name string, last *gate.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Revise scripts/run.sh for the skill %q: attempt %d of the %s gate failed", name, last.Attempt, g)
	if last.TimedOut {
		b.WriteString(" by timing out; eliminate any blocking read or unbounded loop")
	} else {
		fmt.Fprintf(&b, " with %d of %d assertions failing (exit code %d)", last.FailCount, last.TotalCount, last.ExitCode)
	}
	b.WriteString(".\n\nTest output:\n")
	b.WriteString(last.RawOutput)
	return b.String()
}

func docRequirements(name, prompt string) string {
	return fmt.Sprintf(`Write the SKILL.md body (markdown, no frontmatter) for the skill %q:
what it does (%s), how to invoke scripts/run.sh, its exit codes, and
input/output examples.`, name, prompt)
}

func examplesRequirements(name, prompt string) string {
	return fmt.Sprintf(`Write references/examples.md for the skill %q (behavior: %s):
concrete invocation examples with expected output, including at least one
error case showing the non-zero exit code.`, name, prompt)
}
