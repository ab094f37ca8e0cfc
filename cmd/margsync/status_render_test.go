package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLineAlignsLabels(t *testing.T) {
	short := renderStatusLine("Running", statusOK, "yes", false)
	long := renderStatusLine("Last sync error", statusError, "boom", false)

	if strings.Index(short, "[OK]") != strings.Index(long, "[ERROR]") {
		t.Fatalf("status columns misaligned:\n%q\n%q", short, long)
	}
	if !strings.HasPrefix(short, statusIndent+"Running:") {
		t.Fatalf("unexpected line layout %q", short)
	}
}

func TestRenderStatusLineColorizes(t *testing.T) {
	line := renderStatusLine("Running", statusOK, "yes", true)
	if !strings.HasPrefix(line, ansiGreen) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected colorized line, got %q", line)
	}
	plain := renderStatusLine("Running", statusOK, "yes", false)
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("expected no escape codes, got %q", plain)
	}
}

func TestRenderTableKeepsHeaderCasing(t *testing.T) {
	out := renderTable(
		[]string{"ID", "In Flight"},
		[][]string{{"1", "no"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	if !strings.Contains(out, "In Flight") {
		t.Fatalf("expected header casing preserved, got:\n%s", out)
	}
	if strings.Contains(out, "IN FLIGHT") {
		t.Fatalf("expected header not upper-cased, got:\n%s", out)
	}
}
