package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_SmokePass(t *testing.T) {
	// Scenario: smoke script emits a single passing assertion and exits 0.
	raw := "running smoke\n  PASS: smoke test\nall done\n"
	res := Parse(Smoke, raw, 0, false)

	assert.Equal(t, Smoke, res.Gate)
	assert.Equal(t, 1, res.PassCount)
	assert.Equal(t, 0, res.FailCount)
	assert.Equal(t, 1, res.TotalCount)
	assert.True(t, res.Passed())
}

func TestParse_MixedPassFail(t *testing.T) {
	// Scenario: one assertion passes, one fails; exit code 0 does not save it.
	raw := "  PASS: no args fails\n  FAIL: invalid input fails -- expected exit 1, got 0\n"
	res := Parse(Contract, raw, 0, false)

	assert.Equal(t, 1, res.PassCount)
	assert.Equal(t, 1, res.FailCount)
	assert.Equal(t, 2, res.TotalCount)
	assert.False(t, res.Passed())
}

func TestParse_NoAssertions(t *testing.T) {
	// An empty or broken test file must not advance the pipeline, whatever
	// its exit code says.
	res := Parse(Smoke, "nothing to see here\n", 0, false)

	assert.Equal(t, 0, res.TotalCount)
	assert.False(t, res.Passed())
}

func TestParse_CaseSensitive(t *testing.T) {
	raw := "  pass: lowercase is ignored\n  Pass: so is this\n  PASS: counted\n"
	res := Parse(Smoke, raw, 0, false)

	assert.Equal(t, 1, res.PassCount)
	assert.Equal(t, 1, res.TotalCount)
}

func TestParse_PrefixRequiresIndent(t *testing.T) {
	raw := "PASS: unindented\n  PASS: indented\n"
	res := Parse(Smoke, raw, 0, false)

	assert.Equal(t, 1, res.PassCount)
}

func TestParse_CountsAreConsistent(t *testing.T) {
	raw := "  PASS: a\n  PASS: b\n  FAIL: c -- broke\n  PASS: d\n"
	res := Parse(Integration, raw, 0, false)

	assert.Equal(t, res.TotalCount, res.PassCount+res.FailCount)
	assert.Equal(t, 4, res.TotalCount)
}

func TestResult_Passed(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"clean pass", Result{ExitCode: 0, PassCount: 2, TotalCount: 2}, true},
		{"nonzero exit", Result{ExitCode: 1, PassCount: 2, TotalCount: 2}, false},
		{"has failures", Result{ExitCode: 0, PassCount: 1, FailCount: 1, TotalCount: 2}, false},
		{"zero assertions", Result{ExitCode: 0}, false},
		{"timed out", Result{TimedOut: true, ExitCode: 0, PassCount: 1, TotalCount: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Passed())
		})
	}
}

func TestGate_Ordering(t *testing.T) {
	assert.Equal(t, []Gate{Smoke, Contract, Integration}, AllGates())

	next, ok := Smoke.Next()
	assert.True(t, ok)
	assert.Equal(t, Contract, next)

	next, ok = Contract.Next()
	assert.True(t, ok)
	assert.Equal(t, Integration, next)

	_, ok = Integration.Next()
	assert.False(t, ok)

	assert.True(t, Smoke.Valid())
	assert.False(t, Gate("deploy").Valid())
	assert.Equal(t, -1, Gate("deploy").Index())
}
