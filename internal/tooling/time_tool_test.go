package tooling

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"agentgate/internal/domain"
)

var timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

func TestTimeTool_Call_ShouldReturnSuccessWithParseableTimestamp(t *testing.T) {
	tool := NewTimeTool()
	res, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if res.Status != domain.StatusSuccess {
		t.Fatalf("Expected status success, got %q", res.Status)
	}
	match := timestampRe.FindString(res.Report)
	if match == "" {
		t.Fatalf("Report does not contain a YYYY-MM-DD HH:MM:SS timestamp: %q", res.Report)
	}
	if _, err := time.Parse(timeFormat, match); err != nil {
		t.Errorf("Timestamp %q not parseable: %v", match, err)
	}
}

func TestTimeTool_Call_ShouldPrefixReportWithCurrentTime(t *testing.T) {
	orig := nowFunc
	nowFunc = func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}
	defer func() { nowFunc = orig }()

	res, err := NewTimeTool().Call(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := "The current time is 2025-03-14 15:09:26"
	if res.Report != want {
		t.Errorf("Expected %q, got %q", want, res.Report)
	}
}

func TestTimeTool_Call_ShouldBeIdempotentInShape(t *testing.T) {
	tool := NewTimeTool()
	first, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != second.Status {
		t.Errorf("Status differs between calls: %q vs %q", first.Status, second.Status)
	}
	// Timestamp content may differ; the shape must not.
	if !timestampRe.MatchString(first.Report) || !timestampRe.MatchString(second.Report) {
		t.Error("Both reports must carry a timestamp")
	}
}

func TestTimeTool_Call_WithCanceledContext_ShouldReturnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTimeTool().Call(ctx, json.RawMessage(`{}`))
	if err == nil {
		t.Error("Expected error for canceled context")
	}
}
