package telegram

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/pkg/agent"
)

func TestSplitMessage(t *testing.T) {
	short := "Hello world"
	parts := splitMessage(short)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0] != short {
		t.Errorf("expected %q, got %q", short, parts[0])
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("a", 5000)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part length %d, got %d", maxTelegramMessage, len(parts[0]))
	}
}

func TestBuildSessionKey(t *testing.T) {
	key := buildSessionKey(12345, 67890)
	if string(key) != "telegram:12345:67890" {
		t.Errorf("expected 'telegram:12345:67890', got %q", key)
	}
}

func TestParseChatID(t *testing.T) {
	chatID, err := parseChatID("telegram:12345:67890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chatID != 67890 {
		t.Errorf("expected chat id 67890, got %d", chatID)
	}
}

func TestParseChatIDRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"http:client1", "telegram:12345", "telegram:a:b"} {
		if _, err := parseChatID(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestFormatTraceEmpty(t *testing.T) {
	got := formatTrace(nil)
	if !strings.Contains(got, "No trace available") {
		t.Errorf("unexpected empty-trace message: %q", got)
	}
}

func TestFormatTrace(t *testing.T) {
	summary := trace.Aggregate(agent.RawTrace{
		"orchestrationTrace": {
			{"modelInvocationInput": map[string]any{"traceId": "t1", "text": "q"}},
			{"rationale": map[string]any{"traceId": "t2", "text": "r"}},
		},
	})

	got := formatTrace(summary)
	if !strings.Contains(got, trace.PhaseOrchestration) {
		t.Errorf("expected orchestration phase in output, got %q", got)
	}
	if !strings.Contains(got, "Step 1") || !strings.Contains(got, "Step 2") {
		t.Errorf("expected both steps listed, got %q", got)
	}
	if !strings.Contains(got, "Total steps: 2") {
		t.Errorf("expected total step count, got %q", got)
	}
}

func TestFormatCitations(t *testing.T) {
	citations := []agent.Citation{
		{RetrievedReferences: []agent.RetrievedReference{
			{Content: json.RawMessage(`{"text":"a"}`), Location: agent.Location{Type: "S3", S3Location: agent.S3Location{URI: "s3://kb/a.pdf"}}},
			{Content: json.RawMessage(`{"text":"b"}`), Location: agent.Location{Type: "S3", S3Location: agent.S3Location{URI: "s3://kb/b.pdf"}}},
		}},
		{RetrievedReferences: []agent.RetrievedReference{
			{Content: json.RawMessage(`{"text":"c"}`), Location: agent.Location{Type: "S3", S3Location: agent.S3Location{URI: "s3://kb/c.pdf"}}},
		}},
	}

	got := formatCitations(citations)
	want := "[1] s3://kb/a.pdf\n[2] s3://kb/b.pdf\n[3] s3://kb/c.pdf"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatCitationsEmpty(t *testing.T) {
	got := formatCitations(nil)
	if !strings.Contains(got, "No sources") {
		t.Errorf("unexpected empty-citations message: %q", got)
	}
}
