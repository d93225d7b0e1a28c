package engine

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// --- Candidate pool records ---
//
// Records are denormalized documents handed over by the persistence layer.
// The matcher only reads them.

// Job statuses and provenance tags.
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"

	SourceInternal = "internal"
	SourceTopCV    = "topcv"
)

// Ref is a joined sub-entity (category, skill, level, employment type).
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// RefList decodes a list of joined sub-entities. Bare integers become IDs,
// objects contribute their "id" field, anything else is dropped.
type RefList []Ref

// UnmarshalJSON implements json.Unmarshaler.
func (l *RefList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(RefList, 0, len(items))
	for _, raw := range items {
		if ref, ok := decodeRef(raw); ok {
			out = append(out, ref)
		}
	}
	*l = out
	return nil
}

func decodeRef(raw json.RawMessage) (Ref, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Ref{}, false
	}
	switch t := v.(type) {
	case json.Number:
		n = t
	case map[string]any:
		id, ok := t["id"].(json.Number)
		if !ok {
			return Ref{}, false
		}
		n = id
		ref, ok := numberToRef(n)
		if !ok {
			return Ref{}, false
		}
		if name, ok := t["name"].(string); ok {
			ref.Name = strings.TrimSpace(name)
		}
		return ref, true
	default:
		return Ref{}, false
	}
	return numberToRef(n)
}

func numberToRef(n json.Number) (Ref, bool) {
	id, err := n.Int64()
	if err != nil {
		return Ref{}, false
	}
	return Ref{ID: int(id)}, true
}

// IDs returns the referenced IDs in input order.
func (l RefList) IDs() []int {
	ids := make([]int, 0, len(l))
	for _, r := range l {
		ids = append(ids, r.ID)
	}
	return ids
}

// Names returns the non-empty names; ok is false if any ref lacks a name.
func (l RefList) Names() (names []string, ok bool) {
	names = make([]string, 0, len(l))
	for _, r := range l {
		if r.Name == "" {
			return nil, false
		}
		names = append(names, r.Name)
	}
	return names, true
}

// Branch is a company branch the job is attached to.
type Branch struct {
	ID         int    `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	ProvinceID int    `json:"province_id,omitempty"`
	Province   *Ref   `json:"province,omitempty"`
}

// ProvinceRef returns the province identifier from either representation.
func (b Branch) ProvinceRef() int {
	if b.ProvinceID > 0 {
		return b.ProvinceID
	}
	if b.Province != nil {
		return b.Province.ID
	}
	return 0
}

// JobRecord is a job posting with its joined sub-entities.
type JobRecord struct {
	ID               int       `json:"id"`
	ExternalID       string    `json:"external_id,omitempty"`
	Source           string    `json:"source,omitempty"`
	Title            string    `json:"title"`
	CompanyName      string    `json:"company_name,omitempty"`
	Description      string    `json:"description,omitempty"`
	Requirements     []string  `json:"requirements,omitempty"`
	Responsibilities []string  `json:"responsibilities,omitempty"`
	Status           string    `json:"status,omitempty"`
	SalaryFrom       *float64  `json:"salary_from,omitempty"`
	SalaryTo         *float64  `json:"salary_to,omitempty"`
	Categories       RefList   `json:"categories,omitempty"`
	Skills           RefList   `json:"skills,omitempty"`
	Levels           RefList   `json:"levels,omitempty"`
	EmploymentTypes  RefList   `json:"employment_types,omitempty"`
	Branches         []Branch  `json:"branches,omitempty"`
	URL              string    `json:"url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsInternal reports whether the job comes from the local store.
func (j JobRecord) IsInternal() bool {
	return j.Source == "" || j.Source == SourceInternal
}

// Date accepts "2006-01-02", "2006-01", RFC 3339 or null.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null and non-strings decode to the zero date
		d.Time = time.Time{}
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	d.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// Experience is one work experience entry on a student profile.
type Experience struct {
	Position  string `json:"position"`
	Company   string `json:"company,omitempty"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
}

// Education is one education entry on a student profile.
type Education struct {
	School string `json:"school,omitempty"`
	Major  string `json:"major,omitempty"`
	Degree string `json:"degree,omitempty"`
}

// Certification is a certificate listed on a student profile.
type Certification struct {
	Name string `json:"name"`
}

// StudentRecord is a candidate profile.
type StudentRecord struct {
	UserID           int             `json:"user_id"`
	FullName         string          `json:"full_name,omitempty"`
	Skills           []string        `json:"skills,omitempty"`
	DesiredPositions []string        `json:"desired_positions,omitempty"`
	About            string          `json:"about,omitempty"`
	Location         *int            `json:"location,omitempty"`
	Experiences      []Experience    `json:"experiences,omitempty"`
	Educations       []Education     `json:"educations,omitempty"`
	Certifications   []Certification `json:"certifications,omitempty"`
}

// ApplicationRecord links a student to a job they applied to.
type ApplicationRecord struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	JobID     int        `json:"job_id,omitempty"`
	Job       *JobRecord `json:"job,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AppliedJobID returns the job identifier, direct or from the joined job.
func (a ApplicationRecord) AppliedJobID() int {
	if a.JobID > 0 {
		return a.JobID
	}
	if a.Job != nil {
		return a.Job.ID
	}
	return 0
}

// StudentWithApplications is the input of student feature extraction.
type StudentWithApplications struct {
	Student      StudentRecord
	Applications []ApplicationRecord
}

// SkillRecord is an entry of the skill catalogue.
type SkillRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// --- Collaborator queries ---

// JobFilter selects jobs; results are ordered newest first.
type JobFilter struct {
	Status   string `json:"status,omitempty"`
	LevelIDs []int  `json:"level_ids,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// JobPage is one page of jobs.
type JobPage struct {
	Data       []JobRecord `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// StudentFilter selects students.
type StudentFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ApplicationFilter selects applications by student or job.
type ApplicationFilter struct {
	UserID int `json:"user_id,omitempty"`
	JobID  int `json:"job_id,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// FeedQuery parameterizes an external job feed fetch.
type FeedQuery struct {
	Keyword  string `json:"keyword,omitempty"`
	Location int    `json:"location,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
}
