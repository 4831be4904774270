package core

import "time"

// ========== Video lifecycle ==========

type VideoStatus string

const (
	StatusPending      VideoStatus = "pending"
	StatusProcessing   VideoStatus = "processing" // audio extraction
	StatusTranscribing VideoStatus = "transcribing"
	StatusIndexing     VideoStatus = "indexing"
	StatusSummarizing  VideoStatus = "summarizing"
	StatusCompleted    VideoStatus = "completed"
	StatusFailed       VideoStatus = "failed"
)

// Terminal reports whether no further stage can run from this status.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Video struct {
	ID           string     `json:"id"`
	SourcePath   string     `json:"source_path"`
	Duration     float64    `json:"duration"`
	Status       VideoStatus `json:"status"`
	Progress     int        `json:"processing_progress"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// ========== Transcript ==========

type Segment struct {
	ID      string  `json:"id"`
	VideoID string  `json:"video_id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// ========== Summaries ==========

type SummaryKind string

const (
	SummaryFull   SummaryKind = "full"
	SummaryBullet SummaryKind = "bullet"
	SummaryShort  SummaryKind = "short"
)

type Summary struct {
	VideoID        string      `json:"video_id"`
	Kind           SummaryKind `json:"kind"`
	Content        string      `json:"content"`
	KeyTopics      []string    `json:"key_topics,omitempty"`
	GenerationTime float64     `json:"generation_time"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

// ========== Highlights & shorts ==========

type HighlightCandidate struct {
	SegmentIDs []string `json:"segment_ids"`
	Score      float64  `json:"score"`
	Start      float64  `json:"start_time"`
	End        float64  `json:"end_time"`
	Snippet    string   `json:"transcript_snippet"`
	Reason     string   `json:"reason,omitempty"`
}

func (h HighlightCandidate) Duration() float64 { return h.End - h.Start }

type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ShortVideoPlan is the assembler's contract to the external renderer:
// chronological, non-overlapping time ranges of the source video.
type ShortVideoPlan struct {
	VideoID        string      `json:"video_id"`
	Ranges         []TimeRange `json:"ranges"`
	TargetDuration float64     `json:"target_duration"`
	Style          string      `json:"style"`
	CaptionStyle   string      `json:"caption_style"`
}

func (p ShortVideoPlan) TotalDuration() float64 {
	var total float64
	for _, r := range p.Ranges {
		total += r.End - r.Start
	}
	return total
}

// ========== Chat ==========

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatTurn struct {
	VideoID         string    `json:"video_id"`
	SessionID       string    `json:"session_id"`
	Seq             int       `json:"sequence_number"`
	Role            ChatRole  `json:"role"`
	Text            string    `json:"text"`
	CitedSegmentIDs []string  `json:"cited_segment_ids,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type AnswerMode string

const (
	ModeGenerative AnswerMode = "generative"
	ModeExtractive AnswerMode = "extractive"
)

type Source struct {
	Timestamp string  `json:"timestamp"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
}

type ChatAnswer struct {
	SessionID string     `json:"session_id"`
	Answer    string     `json:"answer"`
	Sources   []Source   `json:"sources"`
	Mode      AnswerMode `json:"mode"`
}

// ========== Retrieval ==========

type Hit struct {
	SegmentID string  `json:"segment_id"`
	Score     float64 `json:"score"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
}
