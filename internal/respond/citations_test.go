package respond

import (
	"strings"
	"testing"

	"github.com/user/bedrockchat/pkg/agent"
)

func ref(uri string) agent.RetrievedReference {
	return agent.RetrievedReference{
		Location: agent.Location{S3Location: agent.S3Location{URI: uri}},
	}
}

func TestInjectCitationsNoMarkersNoCitations(t *testing.T) {
	text := "The capital of France is Paris."
	got := InjectCitations(text, nil)
	if got != text {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestInjectCitationsMarkerRewrite(t *testing.T) {
	citations := []agent.Citation{{RetrievedReferences: []agent.RetrievedReference{ref("s3://kb/a.pdf")}}}
	got := InjectCitations("See the brochure %[3]% for details.", citations)

	if strings.Contains(got, "%[3]%") {
		t.Errorf("placeholder not rewritten: %q", got)
	}
	if !strings.Contains(got, "<sup>[3]</sup>") {
		t.Errorf("expected superscript marker [3], got %q", got)
	}
}

func TestInjectCitationsMarkerRewriteWithoutCitations(t *testing.T) {
	// Placeholder substitution happens even when the citations list is
	// empty; only the location list is skipped.
	got := InjectCitations("Check %[1]% and %[12]%.", nil)
	if got != "Check <sup>[1]</sup> and <sup>[12]</sup>." {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestInjectCitationsFlattenedNumbering(t *testing.T) {
	citations := []agent.Citation{
		{RetrievedReferences: []agent.RetrievedReference{ref("s3://kb/a.pdf"), ref("s3://kb/b.pdf")}},
		{RetrievedReferences: []agent.RetrievedReference{ref("s3://kb/c.pdf")}},
	}
	got := InjectCitations("answer", citations)

	for _, want := range []string{
		"[1] s3://kb/a.pdf",
		"[2] s3://kb/b.pdf",
		"[3] s3://kb/c.pdf",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing location line %q in %q", want, got)
		}
	}

	// Ordinals follow flattened reference order, not citation order.
	if strings.Index(got, "[1] s3://kb/a.pdf") > strings.Index(got, "[2] s3://kb/b.pdf") {
		t.Error("location lines out of order")
	}
}

func TestInjectCitationsLocationListFormat(t *testing.T) {
	citations := []agent.Citation{{RetrievedReferences: []agent.RetrievedReference{ref("s3://kb/a.pdf")}}}
	got := InjectCitations("answer", citations)

	want := "answer\n\n<br>[1] s3://kb/a.pdf"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInjectCitationsDoesNotMutateInput(t *testing.T) {
	citations := []agent.Citation{{RetrievedReferences: []agent.RetrievedReference{ref("s3://kb/a.pdf")}}}
	InjectCitations("answer %[1]%", citations)

	if citations[0].RetrievedReferences[0].Location.S3Location.URI != "s3://kb/a.pdf" {
		t.Error("input citations mutated")
	}
}
