package jobserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
	"github.com/anatolykoptev/go_jobmatch/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerSimilarJobs(server *mcp.Server, r Ranker) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "similar_jobs",
		Description: "Find open jobs similar to a given job by category, skill, level, employment type, description text, salary and location overlap. The job itself is never returned. Set explain=true for a per-feature similarity breakdown.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, similarJobsHandler(r))
}

func similarJobsHandler(r Ranker) func(context.Context, *mcp.CallToolRequest, engine.SimilarJobsInput) (*mcp.CallToolResult, engine.SimilarJobsOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SimilarJobsInput) (*mcp.CallToolResult, engine.SimilarJobsOutput, error) {
		if err := toolutil.RequireID("job_id", input.JobID); err != nil {
			return nil, engine.SimilarJobsOutput{}, err
		}
		similar, err := r.SimilarJobs(ctx, input.JobID, toolutil.NormLimit(input.Limit))
		if err != nil {
			return nil, engine.SimilarJobsOutput{}, toolutil.ToolError("similar_jobs", err)
		}

		out := engine.SimilarJobsOutput{JobID: input.JobID, Jobs: make([]engine.SimilarJobResult, len(similar))}
		for i, j := range similar {
			res := engine.SimilarJobResult{
				ID:              j.ID,
				ExternalID:      j.ExternalID,
				Source:          jobSource(j.JobRecord),
				Title:           j.Title,
				CompanyName:     j.CompanyName,
				SalaryFrom:      j.SalaryFrom,
				SalaryTo:        j.SalaryTo,
				URL:             j.URL,
				Posted:          posted(j.JobRecord),
				SimilarityScore: j.SimilarityScore,
				MatchPercentage: j.MatchPercentage,
			}
			if input.Explain {
				res.Breakdown = j.Breakdown
			}
			out.Jobs[i] = res
		}

		if len(out.Jobs) == 0 {
			out.Summary = fmt.Sprintf("No jobs similar to %d found.", input.JobID)
		} else {
			out.Summary = fmt.Sprintf("Found %d jobs similar to %d. Closest: %q (%.2f%%).",
				len(out.Jobs), input.JobID, out.Jobs[0].Title, out.Jobs[0].MatchPercentage)
		}
		return nil, out, nil
	}
}
