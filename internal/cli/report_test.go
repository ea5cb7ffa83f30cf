package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/suppress"
	"github.com/matzehuels/modgraph/pkg/violation"
)

func sampleReport() *pipeline.Report {
	missing := violation.New("content-module-backing", "orphan", violation.Backing{
		BackingKind: violation.KindNoBackingTarget, Module: "orphan", Expected: "orphan",
	})
	missing.Patches = []patch.Patch{{Title: "add target orphan", Diff: "--- a/BUILD\n+++ b/BUILD\n@@ -1 +1,2 @@\n core\n+orphan\n"}}
	renamed := violation.New("content-module-backing", "ui/git", violation.Backing{
		BackingKind: violation.KindMismatchedBackingTarget, Module: "ui/git", Expected: "ui.git", Targets: []string{"git"},
	})
	renamed.Severity = violation.SeverityWarning
	return &pipeline.Report{
		RunID:       "run-1",
		Fingerprint: "0123456789abcdef",
		Violations:  []violation.Violation{missing, renamed},
		Unused:      suppress.Config{"core": {"gone"}},
		Stats:       pipeline.Stats{Rules: 15, Errors: 1, Warnings: 1},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport(), reportOptions{})
	out := buf.String()

	for _, want := range []string{
		"0123456789ab",
		"run-1",
		"module orphan has no backing target",
		"module ui/git is backed by git",
		"unused suppression core: gone",
		"content-module-backing",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "+orphan") {
		t.Error("patches printed without the patches option")
	}
}

func TestPrintReportPatches(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport(), reportOptions{Patches: true})
	out := buf.String()
	if !strings.Contains(out, "add target orphan") || !strings.Contains(out, "+orphan") {
		t.Errorf("report missing patch:\n%s", out)
	}
}

func TestPrintReportFailures(t *testing.T) {
	rep := &pipeline.Report{
		Failures: []pipeline.RuleFailure{
			{Rule: "product-closure", Code: "RULE_FAILED", Err: "boom"},
			{Rule: "product-module-dependencies", Err: "input product-modules unavailable", Skipped: true},
		},
	}
	var buf bytes.Buffer
	printReport(&buf, rep, reportOptions{})
	out := buf.String()
	if !strings.Contains(out, "rule product-closure failed (RULE_FAILED): boom") {
		t.Errorf("missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "rule product-module-dependencies skipped") {
		t.Errorf("missing skipped line:\n%s", out)
	}
}

func TestColorDiffLine(t *testing.T) {
	for _, l := range []string{"+++ b/x", "--- a/x", "@@ -1 +1 @@", "+add", "-del", " ctx"} {
		if got := colorDiffLine(l); !strings.Contains(got, l) {
			t.Errorf("colorDiffLine(%q) = %q, lost the text", l, got)
		}
	}
}

func TestShortHash(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "0123456789ab"},
	}
	for _, tt := range tests {
		if got := shortHash(tt.in); got != tt.want {
			t.Errorf("shortHash(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
