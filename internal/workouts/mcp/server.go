package mcp

import (
	"net/http"

	"github.com/2beens/liftlog/internal/auth"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with the training tools of one user: due workout,
// next workout, KPIs, predictions, workout log, program.
// Used by cmd/liftlog_mcp over stdio and, per request, by NewHTTPHandler.
func NewServer(service contextService, userID string) *mcp.Server {
	h := NewHandler(service, userID)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "liftlog",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_due_workout",
		Description: "Returns the workout due today (exercises, sets, rep ranges) or marks today as a rest day, plus whatever was already logged today. Use when planning or reviewing today's session.",
	}, h.GetDueWorkoutTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_next_workout",
		Description: "Returns the next workout in the rotation after the last completed session, regardless of the weekday.",
	}, h.GetNextWorkoutTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_kpis",
		Description: "Returns training KPIs over the whole history: total volume, sets completed vs planned, consistency score, new max events, overload ratio and weekly volume series.",
	}, h.GetKPIsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_predictions",
		Description: "Returns per-set weight and rep targets for today's workout (phase floor, increment or load_up). Optional: exercise_id to narrow to one exercise.",
	}, h.GetPredictionsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_workout_log",
		Description: "Returns the stored workout log of one date. Arg: date (YYYY-MM-DD).",
	}, h.GetWorkoutLogTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_program",
		Description: "Returns the training program: weekday rotation, workouts with their exercises, load step and load increase.",
	}, h.GetProgramTool())

	return s
}

// NewHTTPHandler serves the tools over streamable HTTP for the user
// authenticated on each request. Mounted at /mcp.
func NewHTTPHandler(service contextService) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			return nil
		}
		return NewServer(service, userID)
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
