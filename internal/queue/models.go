package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an ingestion job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRipping     Status = "ripping"
	StatusRipped      Status = "ripped"
	StatusEncoding    Status = "encoding"
	StatusEncoded     Status = "encoded"
	StatusIdentifying Status = "identifying"
	StatusReview      Status = "review"
	StatusMoving      Status = "moving"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
	StatusArchived    Status = "archived"
)

// StartupResetReason is the error message recorded when a rip in flight is
// failed because the daemon restarted underneath it.
const StartupResetReason = "reset on startup"

var allStatuses = []Status{
	StatusPending,
	StatusRipping,
	StatusRipped,
	StatusEncoding,
	StatusEncoded,
	StatusIdentifying,
	StatusReview,
	StatusMoving,
	StatusComplete,
	StatusFailed,
	StatusArchived,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions is the complete status graph. Every status change in
// the system flows through Store.UpdateJobStatus, which rejects any edge
// not listed here. encoding->ripped and identifying->encoded are the
// reversion edges used by shutdown and oversight repairs.
var allowedTransitions = map[Status][]Status{
	StatusPending:     {StatusRipping, StatusFailed},
	StatusRipping:     {StatusRipped, StatusFailed},
	StatusRipped:      {StatusEncoding, StatusFailed},
	StatusEncoding:    {StatusEncoded, StatusRipped, StatusFailed},
	StatusEncoded:     {StatusIdentifying, StatusFailed},
	StatusIdentifying: {StatusReview, StatusMoving, StatusEncoded, StatusFailed},
	StatusReview:      {StatusMoving, StatusFailed},
	StatusMoving:      {StatusComplete, StatusFailed},
	StatusComplete:    {StatusArchived},
	StatusFailed:      {StatusArchived},
	StatusArchived:    nil,
}

var workingStatuses = map[Status]struct{}{
	StatusRipping:     {},
	StatusEncoding:    {},
	StatusIdentifying: {},
	StatusMoving:      {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether the status graph permits moving a job from
// one status to another.
func CanTransition(from, to Status) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsWorkingStatus reports whether a status reflects an in-flight operation.
func IsWorkingStatus(status Status) bool {
	_, ok := workingStatuses[status]
	return ok
}

// IsTerminal reports whether a status accepts no further work. Archive is
// the only edge out of a terminal status.
func IsTerminal(status Status) bool {
	return status == StatusComplete || status == StatusFailed || status == StatusArchived
}

// ContentType classifies what a disc holds once identified.
type ContentType string

const (
	ContentTypeUnknown  ContentType = "unknown"
	ContentTypeMovie    ContentType = "movie"
	ContentTypeTVSeason ContentType = "tv_season"
)

// ParseContentType converts a string into a known ContentType.
func ParseContentType(value string) (ContentType, bool) {
	normalized := ContentType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ContentTypeUnknown, ContentTypeMovie, ContentTypeTVSeason:
		return normalized, true
	default:
		return "", false
	}
}

// Job is one disc's trip through the pipeline, persisted in SQLite.
type Job struct {
	ID              int64
	DriveID         string
	DiscLabel       string
	Status          Status
	ContentType     ContentType
	IdentifiedTitle string
	IdentifiedYear  int
	CatalogID       int64
	Confidence      *float64
	PosterRef       string
	RipPath         string
	EncodePath      string
	FinalPath       string
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identification carries the fields written by the identifier and the
// manual identify endpoints. It never carries status.
type Identification struct {
	ContentType ContentType
	Title       string
	Year        int
	CatalogID   int64
	Confidence  *float64
	PosterRef   string
}

// HumanConfidence marks an identification as human-made. Automatic
// identification never reaches 1.0; scores are clamped below it.
const HumanConfidence = 1.0

// IsPreIdentified reports whether the job carries a human identification
// that lets the identifier skip the catalog lookup entirely.
func (j Job) IsPreIdentified() bool {
	return j.IdentifiedTitle != "" && j.Confidence != nil && *j.Confidence >= HumanConfidence
}

// DisplayTitle returns the best human-readable name for the job.
func (j Job) DisplayTitle() string {
	if j.IdentifiedTitle != "" {
		return j.IdentifiedTitle
	}
	if label := strings.TrimSpace(j.DiscLabel); label != "" {
		return label
	}
	return "Unknown Disc"
}

// SetProgress updates the three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// CollectionItem is one finished title in the library ledger.
type CollectionItem struct {
	ID          int64
	ContentType ContentType
	Title       string
	Year        int
	CatalogID   int64
	FinalPath   string
	AddedAt     time.Time
}

// WantedItem is a title the user is watching for.
type WantedItem struct {
	ID          int64
	Title       string
	Year        int
	ContentType ContentType
	CatalogID   int64
	PosterRef   string
	Notes       string
	AddedAt     time.Time
}
