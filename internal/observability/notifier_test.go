package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackNotifier_NoAlerts(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := n.Notify(context.Background(), []Alert{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if called {
		t.Fatal("expected no HTTP request for empty alerts")
	}
}

func TestSlackNotifier_SendsAlerts(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	at := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	alerts := []Alert{
		{
			ID:          "overdue-g1",
			GoalID:      "g1",
			Condition:   ConditionGoalOverdue,
			Severity:    SeverityHigh,
			Message:     `goal "Run a marathon" passed its deadline 2025/01/10 at 40%`,
			TriggeredAt: at,
		},
		{
			ID:          "at-risk-g2",
			GoalID:      "g2",
			Condition:   ConditionGoalAtRisk,
			Severity:    SeverityMedium,
			Message:     `goal "Read 12 books" is due in 3 days at 10%`,
			TriggeredAt: at,
		},
	}

	if err := NewSlackNotifier(srv.URL).Notify(context.Background(), alerts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receivedContentType != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", receivedContentType)
	}

	var msg slackMessage
	if err := json.Unmarshal(receivedBody, &msg); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}

	// header, section, context, divider, section, context
	wantTypes := []string{"header", "section", "context", "divider", "section", "context"}
	if len(msg.Blocks) != len(wantTypes) {
		t.Fatalf("got %d blocks, want %d", len(msg.Blocks), len(wantTypes))
	}
	for i, want := range wantTypes {
		if msg.Blocks[i].Type != want {
			t.Errorf("block %d type = %s, want %s", i, msg.Blocks[i].Type, want)
		}
	}
	if msg.Blocks[0].Text == nil || msg.Blocks[0].Text.Text != "Goal Alert Summary" {
		t.Errorf("header = %v", msg.Blocks[0].Text)
	}

	body := string(receivedBody)
	for _, want := range []string{"Run a marathon", "Read 12 books", "`g1`", ConditionGoalAtRisk, "2025-01-15 10:30 UTC"} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	alerts := []Alert{{ID: "overdue-g1", GoalID: "g1", Severity: SeverityHigh, Message: "late", TriggeredAt: time.Now().UTC()}}
	err := NewSlackNotifier(srv.URL).Notify(context.Background(), alerts)
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention status 500, got: %v", err)
	}
}

func TestSlackNotifier_CanceledContext(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	alerts := []Alert{{ID: "a", Severity: SeverityLow, Message: "quiet"}}
	if err := NewSlackNotifier(srv.URL).Notify(ctx, alerts); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if called {
		t.Error("request reached the server despite canceled context")
	}
}

func TestSlackNotifier_MissingURL(t *testing.T) {
	alerts := []Alert{{ID: "a", Severity: SeverityLow, Message: "quiet"}}
	if err := NewSlackNotifier("").Notify(context.Background(), alerts); err == nil {
		t.Fatal("expected error without webhook URL")
	}
}

func TestSlackNotifier_SeverityEmojis(t *testing.T) {
	tests := []struct {
		severity AlertSeverity
		emoji    string
	}{
		{SeverityHigh, "\U0001f534"},
		{SeverityMedium, "\U0001f7e1"},
		{SeverityLow, "\U0001f535"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			msg := (&slackNotifier{}).buildMessage([]Alert{{Severity: tt.severity, Message: "m"}})
			if !strings.HasPrefix(msg.Blocks[1].Text.Text, tt.emoji) {
				t.Errorf("section %q does not start with %s", msg.Blocks[1].Text.Text, tt.emoji)
			}
		})
	}
}
