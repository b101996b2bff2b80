package mcp

import (
	"context"
	"encoding/json"

	"github.com/2beens/liftlog/internal/workouts/logs"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler handles MCP tool requests and responses for one user: parses input,
// calls the service, formats MCP result.
type Handler struct {
	service contextService
	userID  string
}

func NewHandler(service contextService, userID string) *Handler {
	return &Handler{
		service: service,
		userID:  userID,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

// GetDueWorkoutTool returns the MCP tool handler for get_due_workout.
func (h *Handler) GetDueWorkoutTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		due, err := h.service.DueWorkout(ctx, h.userID)
		if err != nil {
			return errorResult("Error fetching due workout: " + err.Error()), nil, nil
		}
		return jsonResult(due), nil, nil
	}
}

// GetNextWorkoutTool returns the MCP tool handler for get_next_workout.
func (h *Handler) GetNextWorkoutTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		next, err := h.service.NextWorkout(ctx, h.userID)
		if err != nil {
			return errorResult("Error fetching next workout: " + err.Error()), nil, nil
		}
		return jsonResult(next), nil, nil
	}
}

// GetKPIsTool returns the MCP tool handler for get_kpis.
func (h *Handler) GetKPIsTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		kpis, err := h.service.KPIs(ctx, h.userID)
		if err != nil {
			return errorResult("Error fetching KPIs: " + err.Error()), nil, nil
		}
		return jsonResult(kpis), nil, nil
	}
}

// PredictionsInput is the input for get_predictions.
type PredictionsInput struct {
	ExerciseID int `json:"exercise_id,omitempty" jsonschema:"Only this exercise of today's workout (e.g. 101)"`
}

// GetPredictionsTool returns the MCP tool handler for get_predictions.
func (h *Handler) GetPredictionsTool() func(context.Context, *mcp.CallToolRequest, PredictionsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in PredictionsInput) (*mcp.CallToolResult, any, error) {
		if in.ExerciseID < 0 {
			return errorResult("Invalid exercise_id: must be positive"), nil, nil
		}
		predictions, err := h.service.Predictions(ctx, h.userID, in.ExerciseID)
		if err != nil {
			return errorResult("Error fetching predictions: " + err.Error()), nil, nil
		}
		return jsonResult(predictions), nil, nil
	}
}

// WorkoutLogInput is the input for get_workout_log.
type WorkoutLogInput struct {
	Date string `json:"date" jsonschema:"Date of the log (YYYY-MM-DD)"`
}

// GetWorkoutLogTool returns the MCP tool handler for get_workout_log.
func (h *Handler) GetWorkoutLogTool() func(context.Context, *mcp.CallToolRequest, WorkoutLogInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WorkoutLogInput) (*mcp.CallToolResult, any, error) {
		date, err := logs.ParseDate(in.Date)
		if err != nil {
			return errorResult("Invalid date: use YYYY-MM-DD"), nil, nil
		}
		l, err := h.service.WorkoutLog(ctx, h.userID, logs.DateKey(date))
		if err != nil {
			return errorResult("Error fetching workout log: " + err.Error()), nil, nil
		}
		return jsonResult(l), nil, nil
	}
}

// GetProgramTool returns the MCP tool handler for get_program.
func (h *Handler) GetProgramTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		return jsonResult(h.service.Program()), nil, nil
	}
}
