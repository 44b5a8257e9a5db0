package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taskpilot/taskpilot/app/models"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) Complete(_ context.Context, _ string, userPrompt string) (string, error) {
	f.prompt = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const validPlan = `{
	"mainTasks": [
		{"name": "Write report", "priority": "high"},
		{"name": "Inbox zero", "priority": "low"}
	],
	"subtasks": [
		{"description": "Draft outline", "time": 1.5, "mainTaskName": "Write report"},
		{"description": "Archive newsletters", "time": 0.5, "mainTaskName": "Inbox zero"}
	]
}`

func TestGenerateDaySchedule(t *testing.T) {
	llm := &fakeLLM{response: validPlan}
	planner := NewPlanner(llm)

	tasks := []models.Task{
		{Description: "Write report", Time: "2"},
		{Description: "Old chore", Time: "1", IsDone: true},
	}
	schedule, raw, err := planner.GenerateDaySchedule(context.Background(), tasks, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != validPlan {
		t.Fatal("raw response not passed through")
	}
	if len(schedule.MainTasks) != 2 || schedule.MainTasks[0].Priority != "high" {
		t.Fatalf("unexpected schedule %+v", schedule)
	}

	// Done tasks must not reach the prompt.
	if strings.Contains(llm.prompt, "Old chore") {
		t.Fatalf("prompt contains done task: %q", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "Write report") {
		t.Fatalf("prompt missing open task: %q", llm.prompt)
	}
}

func TestGenerateDayScheduleNoOpenTasks(t *testing.T) {
	planner := NewPlanner(&fakeLLM{response: validPlan})

	_, _, err := planner.GenerateDaySchedule(context.Background(), []models.Task{{Description: "done", IsDone: true}}, 8)
	if err == nil {
		t.Fatal("expected error for no open tasks")
	}
}

func TestParseDayScheduleRejectsBadOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "Sure! Here is your plan:"},
		{name: "no main tasks", raw: `{"mainTasks": [], "subtasks": []}`},
		{name: "bad priority", raw: `{"mainTasks": [{"name": "x", "priority": "urgent"}], "subtasks": []}`},
		{name: "zero time subtask", raw: `{"mainTasks": [{"name": "x", "priority": "low"}], "subtasks": [{"description": "y", "time": 0, "mainTaskName": "x"}]}`},
	}

	for _, tt := range tests {
		if _, err := ParseDaySchedule(tt.raw); err == nil {
			t.Fatalf("%s: expected parse failure", tt.name)
		}
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Fatalf("response format = %q", req.ResponseFormat.Type)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": validPlan}},
			},
		})
	}))
	defer srv.Close()

	client := &OpenAIClient{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		Model:      "gpt-4o-mini",
		HTTPClient: srv.Client(),
	}
	got, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != validPlan {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestOpenAIClientCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := &OpenAIClient{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := client.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
