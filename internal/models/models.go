package models

import (
	"errors"
	"time"
)

// ErrNotFound marks a lookup miss for sources, assignments and analyses.
var ErrNotFound = errors.New("not found")

const (
	AssignmentUploaded  = "uploaded"
	AssignmentAnalyzing = "analyzing"
	AssignmentAnalyzed  = "analyzed"
	AssignmentFailed    = "failed"
)

const (
	LevelUndergraduate = "undergraduate"
	LevelGraduate      = "graduate"
	LevelPhD           = "phd"
)

// SourceRecord is one entry of the academic source catalog.
type SourceRecord struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Authors         string    `json:"authors,omitempty"`
	PublicationYear *int      `json:"publication_year,omitempty"`
	Abstract        string    `json:"abstract,omitempty"`
	FullText        string    `json:"-"`
	SourceType      string    `json:"source_type,omitempty"`
	Embedding       []float32 `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// RankedSource is a catalog hit for one query. Similarity is in [0,1].
type RankedSource struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Authors         string  `json:"authors,omitempty"`
	PublicationYear *int    `json:"publication_year,omitempty"`
	Abstract        string  `json:"abstract,omitempty"`
	SourceType      string  `json:"source_type,omitempty"`
	Similarity      float64 `json:"similarity"`
	Snippet         string  `json:"snippet,omitempty"`
}

type FlaggedSection struct {
	SourceTitle string  `json:"source_title"`
	Similarity  float64 `json:"similarity"`
	Reason      string  `json:"reason"`
}

type PlagiarismAssessment struct {
	Score           float64          `json:"score"`
	FlaggedSections []FlaggedSection `json:"flagged_sections"`
}

type AnalysisRecord struct {
	Topic                   string   `json:"topic"`
	AcademicLevel           string   `json:"academic_level"`
	KeyThemes               []string `json:"key_themes"`
	ResearchQuestions       []string `json:"research_questions"`
	ResearchSuggestions     string   `json:"research_suggestions"`
	CitationRecommendations string   `json:"citation_recommendations"`
	PlagiarismRiskAreas     []string `json:"plagiarism_risk_areas"`
}

type Assignment struct {
	ID            int64     `json:"id"`
	StudentID     string    `json:"student_id"`
	Filename      string    `json:"filename"`
	StoredPath    string    `json:"-"`
	ContentSHA256 string    `json:"content_sha256,omitempty"`
	OriginalText  string    `json:"-"`
	Topic         string    `json:"topic,omitempty"`
	AcademicLevel string    `json:"academic_level,omitempty"`
	WordCount     int       `json:"word_count"`
	Status        string    `json:"status"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// AnalysisResult is the persisted outcome of one pipeline run for an assignment.
type AnalysisResult struct {
	ID               int64            `json:"id"`
	AssignmentID     int64            `json:"assignment_id"`
	SuggestedSources []RankedSource   `json:"suggested_sources"`
	PlagiarismScore  float64          `json:"plagiarism_score"`
	FlaggedSections  []FlaggedSection `json:"flagged_sections"`
	Analysis         AnalysisRecord   `json:"analysis"`
	Issues           []string         `json:"issues,omitempty"`
	AnalyzedAt       time.Time        `json:"analyzed_at"`
}
