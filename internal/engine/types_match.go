package engine

// --- Ranked results ---

// RecommendedJob is a job ranked for a student.
type RecommendedJob struct {
	JobRecord
	RecommendationScore float64 `json:"recommendation_score"`
	MatchPercentage     float64 `json:"match_percentage"`
}

// SimilarJob is a job ranked by similarity to another job.
type SimilarJob struct {
	JobRecord
	SimilarityScore float64            `json:"similarity_score"`
	MatchPercentage float64            `json:"match_percentage"`
	Breakdown       map[string]float64 `json:"breakdown,omitempty"`
}

// StudentMatch is a student ranked for a job.
type StudentMatch struct {
	StudentRecord
	MatchScore      float64 `json:"match_score"`
	MatchPercentage float64 `json:"match_percentage"`
}

// --- Tool inputs ---

type RecommendJobsInput struct {
	StudentID int `json:"student_id" jsonschema:"User ID of the student to recommend jobs for"`
	Limit     int `json:"limit,omitempty" jsonschema:"Max results (default 10, max 100)"`
}

type RecommendJobsWeightedInput struct {
	StudentID int                `json:"student_id" jsonschema:"User ID of the student to recommend jobs for"`
	Weights   map[string]float64 `json:"weights" jsonschema:"Partial weight overrides: categories, skills, levels, employment_types, text, salary, location"`
	Limit     int                `json:"limit,omitempty" jsonschema:"Max results (default 10, max 100)"`
}

type SimilarJobsInput struct {
	JobID   int  `json:"job_id" jsonschema:"ID of the job to find similar jobs for"`
	Limit   int  `json:"limit,omitempty" jsonschema:"Max results (default 10, max 100)"`
	Explain bool `json:"explain,omitempty" jsonschema:"Include per-feature similarity breakdown"`
}

type MatchingStudentsInput struct {
	JobID int `json:"job_id" jsonschema:"ID of the job to find matching students for"`
	Limit int `json:"limit,omitempty" jsonschema:"Max results (default 10, max 100)"`
}

// --- Tool outputs ---
//
// Tool results are flat views of the ranked records: dates are rendered as
// strings and nested profile data is left out.

type RecommendedJobResult struct {
	ID                  int      `json:"id,omitempty"`
	ExternalID          string   `json:"external_id,omitempty"`
	Source              string   `json:"source"`
	Title               string   `json:"title"`
	CompanyName         string   `json:"company_name,omitempty"`
	SalaryFrom          *float64 `json:"salary_from,omitempty"`
	SalaryTo            *float64 `json:"salary_to,omitempty"`
	URL                 string   `json:"url,omitempty"`
	Posted              string   `json:"posted,omitempty"`
	RecommendationScore float64  `json:"recommendation_score"`
	MatchPercentage     float64  `json:"match_percentage"`
}

type SimilarJobResult struct {
	ID              int                `json:"id,omitempty"`
	ExternalID      string             `json:"external_id,omitempty"`
	Source          string             `json:"source"`
	Title           string             `json:"title"`
	CompanyName     string             `json:"company_name,omitempty"`
	SalaryFrom      *float64           `json:"salary_from,omitempty"`
	SalaryTo        *float64           `json:"salary_to,omitempty"`
	URL             string             `json:"url,omitempty"`
	Posted          string             `json:"posted,omitempty"`
	SimilarityScore float64            `json:"similarity_score"`
	MatchPercentage float64            `json:"match_percentage"`
	Breakdown       map[string]float64 `json:"breakdown,omitempty"`
}

type StudentMatchResult struct {
	UserID           int      `json:"user_id"`
	FullName         string   `json:"full_name,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	DesiredPositions []string `json:"desired_positions,omitempty"`
	Location         *int     `json:"location,omitempty"`
	MatchScore       float64  `json:"match_score"`
	MatchPercentage  float64  `json:"match_percentage"`
}

type RecommendJobsOutput struct {
	StudentID int                    `json:"student_id"`
	Fallback  bool                   `json:"fallback"`
	Jobs      []RecommendedJobResult `json:"jobs"`
	Summary   string                 `json:"summary"`
}

type SimilarJobsOutput struct {
	JobID   int                `json:"job_id"`
	Jobs    []SimilarJobResult `json:"jobs"`
	Summary string             `json:"summary"`
}

type MatchingStudentsOutput struct {
	JobID    int                  `json:"job_id"`
	Students []StudentMatchResult `json:"students"`
	Summary  string               `json:"summary"`
}
