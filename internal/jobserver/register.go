package jobserver

import (
	"context"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
	"github.com/anatolykoptev/go_jobmatch/internal/engine/match"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Ranker is the matching surface exposed as tools. *match.Matcher implements it.
type Ranker interface {
	RecommendJobs(ctx context.Context, studentID, limit int) (match.Recommendations, error)
	RecommendJobsWithWeights(ctx context.Context, studentID int, overrides match.WeightOverrides, limit int) (match.Recommendations, error)
	RecommendJobsWithTopCV(ctx context.Context, studentID, limit int) (match.Recommendations, error)
	SimilarJobs(ctx context.Context, jobID, limit int) ([]engine.SimilarJob, error)
	MatchingStudents(ctx context.Context, jobID, limit int) ([]engine.StudentMatch, error)
}

var _ Ranker = (*match.Matcher)(nil)

// ToolCount is the number of tools registered by RegisterTools.
const ToolCount = 5

// RegisterTools registers the matching tools on the given MCP server:
// recommend_jobs, recommend_jobs_weighted, recommend_jobs_topcv,
// similar_jobs, matching_students.
func RegisterTools(server *mcp.Server, r Ranker) {
	registerRecommendJobs(server, r)
	registerRecommendJobsWeighted(server, r)
	registerRecommendJobsTopCV(server, r)
	registerSimilarJobs(server, r)
	registerMatchingStudents(server, r)
}
