package jobserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
	"github.com/anatolykoptev/go_jobmatch/internal/engine/match"
	"github.com/anatolykoptev/go_jobmatch/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerRecommendJobs(server *mcp.Server, r Ranker) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_jobs",
		Description: "Recommend open jobs for a student. Scores every open job against the student's skills, desired positions, application history, experience level and location. Returns jobs sorted by recommendation_score (0–1) with match_percentage. Students with an empty profile get the newest entry-level jobs with a flat 0.5 score (fallback=true).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, recommendJobsHandler(r))
}

func registerRecommendJobsWeighted(server *mcp.Server, r Ranker) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_jobs_weighted",
		Description: "Recommend open jobs for a student with custom feature weights. Keys: categories, skills, levels, employment_types, text, salary, location. Unspecified keys keep the student's default weights.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, recommendJobsWeightedHandler(r))
}

func registerRecommendJobsTopCV(server *mcp.Server, r Ranker) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_jobs_topcv",
		Description: "Recommend jobs for a student from the internal pool merged with live TopCV listings searched by the student's desired position and location. TopCV failures silently fall back to internal jobs only.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, recommendJobsTopCVHandler(r))
}

type recommendHandler = func(context.Context, *mcp.CallToolRequest, engine.RecommendJobsInput) (*mcp.CallToolResult, engine.RecommendJobsOutput, error)

func recommendJobsHandler(r Ranker) recommendHandler {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.RecommendJobsInput) (*mcp.CallToolResult, engine.RecommendJobsOutput, error) {
		if err := toolutil.RequireID("student_id", input.StudentID); err != nil {
			return nil, engine.RecommendJobsOutput{}, err
		}
		recs, err := r.RecommendJobs(ctx, input.StudentID, toolutil.NormLimit(input.Limit))
		if err != nil {
			return nil, engine.RecommendJobsOutput{}, toolutil.ToolError("recommend_jobs", err)
		}
		return nil, recommendOutput(input.StudentID, recs), nil
	}
}

func recommendJobsTopCVHandler(r Ranker) recommendHandler {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.RecommendJobsInput) (*mcp.CallToolResult, engine.RecommendJobsOutput, error) {
		if err := toolutil.RequireID("student_id", input.StudentID); err != nil {
			return nil, engine.RecommendJobsOutput{}, err
		}
		recs, err := r.RecommendJobsWithTopCV(ctx, input.StudentID, toolutil.NormLimit(input.Limit))
		if err != nil {
			return nil, engine.RecommendJobsOutput{}, toolutil.ToolError("recommend_jobs_topcv", err)
		}
		out := recommendOutput(input.StudentID, recs)
		if n := countExternal(recs.Jobs); n > 0 {
			out.Summary += fmt.Sprintf(" %d from TopCV.", n)
		}
		return nil, out, nil
	}
}

func recommendJobsWeightedHandler(r Ranker) func(context.Context, *mcp.CallToolRequest, engine.RecommendJobsWeightedInput) (*mcp.CallToolResult, engine.RecommendJobsOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.RecommendJobsWeightedInput) (*mcp.CallToolResult, engine.RecommendJobsOutput, error) {
		if err := toolutil.RequireID("student_id", input.StudentID); err != nil {
			return nil, engine.RecommendJobsOutput{}, err
		}
		for k, v := range input.Weights {
			if v < 0 {
				return nil, engine.RecommendJobsOutput{}, fmt.Errorf("weight %q must not be negative", k)
			}
		}
		recs, err := r.RecommendJobsWithWeights(ctx, input.StudentID, match.WeightOverrides(input.Weights), toolutil.NormLimit(input.Limit))
		if err != nil {
			return nil, engine.RecommendJobsOutput{}, toolutil.ToolError("recommend_jobs_weighted", err)
		}
		slog.Debug("recommend_jobs_weighted: done",
			slog.Int("student_id", input.StudentID),
			slog.Int("overrides", len(input.Weights)))
		return nil, recommendOutput(input.StudentID, recs), nil
	}
}

func recommendOutput(studentID int, recs match.Recommendations) engine.RecommendJobsOutput {
	out := engine.RecommendJobsOutput{
		StudentID: studentID,
		Fallback:  recs.Fallback,
		Jobs:      make([]engine.RecommendedJobResult, len(recs.Jobs)),
	}
	for i, j := range recs.Jobs {
		out.Jobs[i] = engine.RecommendedJobResult{
			ID:                  j.ID,
			ExternalID:          j.ExternalID,
			Source:              jobSource(j.JobRecord),
			Title:               j.Title,
			CompanyName:         j.CompanyName,
			SalaryFrom:          j.SalaryFrom,
			SalaryTo:            j.SalaryTo,
			URL:                 j.URL,
			Posted:              posted(j.JobRecord),
			RecommendationScore: j.RecommendationScore,
			MatchPercentage:     j.MatchPercentage,
		}
	}

	switch {
	case len(out.Jobs) == 0:
		out.Summary = "No open jobs found."
	case recs.Fallback:
		out.Summary = fmt.Sprintf("Profile is empty; showing %d newest entry-level jobs.", len(out.Jobs))
	default:
		out.Summary = fmt.Sprintf("Ranked %d jobs for student %d. Top match: %q (%.2f%%).",
			len(out.Jobs), studentID, out.Jobs[0].Title, out.Jobs[0].MatchPercentage)
	}
	return out
}

func countExternal(jobs []engine.RecommendedJob) int {
	n := 0
	for _, j := range jobs {
		if !j.IsInternal() {
			n++
		}
	}
	return n
}

func jobSource(j engine.JobRecord) string {
	if j.Source == "" {
		return engine.SourceInternal
	}
	return j.Source
}

func posted(j engine.JobRecord) string {
	if j.CreatedAt.IsZero() {
		return ""
	}
	return j.CreatedAt.Format("2006-01-02")
}
