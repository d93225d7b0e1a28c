package jobserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
	"github.com/anatolykoptev/go_jobmatch/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerMatchingStudents(server *mcp.Server, r Ranker) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "matching_students",
		Description: "Rank students for a job using the job's feature weights against each student's skills, desired positions, application history, experience level and location. Returns students sorted by match_score (0–1) with match_percentage.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, matchingStudentsHandler(r))
}

func matchingStudentsHandler(r Ranker) func(context.Context, *mcp.CallToolRequest, engine.MatchingStudentsInput) (*mcp.CallToolResult, engine.MatchingStudentsOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MatchingStudentsInput) (*mcp.CallToolResult, engine.MatchingStudentsOutput, error) {
		if err := toolutil.RequireID("job_id", input.JobID); err != nil {
			return nil, engine.MatchingStudentsOutput{}, err
		}
		matches, err := r.MatchingStudents(ctx, input.JobID, toolutil.NormLimit(input.Limit))
		if err != nil {
			return nil, engine.MatchingStudentsOutput{}, toolutil.ToolError("matching_students", err)
		}

		out := engine.MatchingStudentsOutput{JobID: input.JobID, Students: make([]engine.StudentMatchResult, len(matches))}
		for i, m := range matches {
			out.Students[i] = engine.StudentMatchResult{
				UserID:           m.UserID,
				FullName:         m.FullName,
				Skills:           m.Skills,
				DesiredPositions: m.DesiredPositions,
				Location:         m.Location,
				MatchScore:       m.MatchScore,
				MatchPercentage:  m.MatchPercentage,
			}
		}

		if len(out.Students) == 0 {
			out.Summary = "No students found."
		} else {
			out.Summary = fmt.Sprintf("Ranked %d students for job %d. Top match: user %d (%.2f%%).",
				len(out.Students), input.JobID, out.Students[0].UserID, out.Students[0].MatchPercentage)
		}
		return nil, out, nil
	}
}
