package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taskpilot/taskpilot/app/models"
)

const systemPrompt = "You are an expert daily planner. " +
	"You respond with a JSON object containing a mainTasks array and a subtasks array. " +
	"Each main task has a name and a priority of low, medium or high. " +
	"Each subtask has a description, a time estimate in hours and the mainTaskName it belongs to. " +
	"The subtask times of a main task must add up to the hours allotted to it."

var validate = validator.New()

// MainTask is one prioritized block of the generated day plan.
type MainTask struct {
	Name     string `json:"name" validate:"required"`
	Priority string `json:"priority" validate:"required,oneof=low medium high"`
}

// Subtask is a concrete time-boxed step under a main task.
type Subtask struct {
	Description  string  `json:"description" validate:"required"`
	Time         float64 `json:"time" validate:"gt=0"`
	MainTaskName string  `json:"mainTaskName" validate:"required"`
}

// DaySchedule is the parsed planner output stored per generation.
type DaySchedule struct {
	MainTasks []MainTask `json:"mainTasks" validate:"required,min=1,dive"`
	Subtasks  []Subtask  `json:"subtasks" validate:"dive"`
}

// BuildPrompt renders the user's open tasks into the planner prompt.
func BuildPrompt(tasks []models.Task, hours float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I have %.1f hours available today. Plan the following tasks:\n", hours)
	for _, task := range tasks {
		fmt.Fprintf(&b, "- %s (estimated: %s hours)\n", task.Description, task.Time)
	}
	return b.String()
}

// ParseDaySchedule validates the raw model output into a DaySchedule.
func ParseDaySchedule(raw string) (*DaySchedule, error) {
	var schedule DaySchedule
	if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
		return nil, fmt.Errorf("scheduler: response is not valid JSON: %w", err)
	}
	if err := validate.Struct(&schedule); err != nil {
		return nil, fmt.Errorf("scheduler: response failed validation: %w", err)
	}
	return &schedule, nil
}

// Planner turns a user's open tasks into a generated day schedule.
type Planner struct {
	llm LLMClient
}

// NewPlanner creates a planner over the given LLM client.
func NewPlanner(llm LLMClient) *Planner {
	return &Planner{llm: llm}
}

// GenerateDaySchedule asks the model for a plan over the undone tasks. Done
// tasks are filtered out before prompting; no undone tasks is an error so a
// credit is never spent on an empty plan.
func (p *Planner) GenerateDaySchedule(ctx context.Context, tasks []models.Task, hours float64) (*DaySchedule, string, error) {
	open := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.IsDone {
			open = append(open, task)
		}
	}
	if len(open) == 0 {
		return nil, "", fmt.Errorf("scheduler: no open tasks to plan")
	}
	if hours <= 0 {
		return nil, "", fmt.Errorf("scheduler: hours must be positive")
	}

	raw, err := p.llm.Complete(ctx, systemPrompt, BuildPrompt(open, hours))
	if err != nil {
		return nil, "", err
	}

	schedule, err := ParseDaySchedule(raw)
	if err != nil {
		return nil, "", err
	}
	return schedule, raw, nil
}
