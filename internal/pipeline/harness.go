package pipeline

// harnessHeader is the shared bash test harness written as the head of
// scripts/test.sh. Each gate's generated assertions are appended below it and
// call these functions. Counters are per-process, and the EXIT trap turns any
// recorded failure into a non-zero exit.
//
// The "  PASS: " / "  FAIL: " line formats are the parsing contract; changing
// them breaks gate result extraction.
const harnessHeader = `#!/usr/bin/env bash
set -u

HARNESS_PASS=0
HARNESS_FAIL=0

pass() {
  HARNESS_PASS=$((HARNESS_PASS + 1))
  printf '  PASS: %s\n' "$1"
}

fail() {
  HARNESS_FAIL=$((HARNESS_FAIL + 1))
  printf '  FAIL: %s -- %s\n' "$1" "$2"
}

assert_eq() {
  local desc="$1" expected="$2" actual="$3"
  if [ "$expected" = "$actual" ]; then
    pass "$desc"
  else
    fail "$desc" "expected '$expected', got '$actual'"
  fi
}

assert_contains() {
  local desc="$1" needle="$2" haystack="$3"
  case "$haystack" in
    *"$needle"*) pass "$desc" ;;
    *) fail "$desc" "output does not contain '$needle'" ;;
  esac
}

assert_exit_code() {
  local desc="$1" expected="$2" actual="$3"
  if [ "$expected" -eq "$actual" ]; then
    pass "$desc"
  else
    fail "$desc" "expected exit $expected, got $actual"
  fi
}

harness_summary() {
  printf 'harness: %d passed, %d failed\n' "$HARNESS_PASS" "$HARNESS_FAIL"
  if [ "$HARNESS_FAIL" -gt 0 ]; then
    exit 1
  fi
}
trap harness_summary EXIT

`
