package api

import "time"

// JobView is the JSON rendering of one queue job.
type JobView struct {
	ID              int64     `json:"id"`
	DriveID         string    `json:"drive_id"`
	DiscLabel       string    `json:"disc_label,omitempty"`
	Status          string    `json:"status"`
	ContentType     string    `json:"content_type"`
	IdentifiedTitle string    `json:"identified_title,omitempty"`
	IdentifiedYear  int       `json:"identified_year,omitempty"`
	CatalogID       int64     `json:"catalog_id,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
	PosterRef       string    `json:"poster_ref,omitempty"`
	RipPath         string    `json:"rip_path,omitempty"`
	EncodePath      string    `json:"encode_path,omitempty"`
	FinalPath       string    `json:"final_path,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ProgressStage   string    `json:"progress_stage,omitempty"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StageHealthView reports one stage handler's readiness.
type StageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowView summarizes the supervisor: whether lanes are running, the
// last lane error, per-status job counts, and stage health.
type WorkflowView struct {
	Running   bool              `json:"running"`
	LastError string            `json:"last_error,omitempty"`
	Counts    map[string]int    `json:"counts"`
	Stages    []StageHealthView `json:"stages,omitempty"`
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	Running      bool         `json:"running"`
	QueueDBPath  string       `json:"queue_db_path"`
	LockFilePath string       `json:"lock_file_path"`
	Workflow     WorkflowView `json:"workflow"`
}

// JobListResponse answers GET /api/jobs.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse answers GET /api/jobs/{id}.
type JobResponse struct {
	Job JobView `json:"job"`
}

// MutationResponse answers the POST job endpoints. Status is the job's
// status after the mutation.
type MutationResponse struct {
	Success         bool   `json:"success"`
	JobID           int64  `json:"job_id"`
	Status          string `json:"status"`
	IdentifiedTitle string `json:"identified_title,omitempty"`
	IdentifiedYear  int    `json:"identified_year,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// IdentifyRequest is the body of the identify and pre-identify endpoints.
// CatalogID picks an exact TMDb record; title and year are optional then.
type IdentifyRequest struct {
	Title     string `json:"title,omitempty"`
	Year      int    `json:"year,omitempty"`
	CatalogID int64  `json:"catalog_id,omitempty"`
}

// CollectionItemView is one finished title in the library ledger.
type CollectionItemView struct {
	ID          int64     `json:"id"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	CatalogID   int64     `json:"catalog_id,omitempty"`
	FinalPath   string    `json:"final_path"`
	AddedAt     time.Time `json:"added_at"`
}

// CollectionResponse answers GET /api/collection.
type CollectionResponse struct {
	Items []CollectionItemView `json:"items"`
}

// CollectionRemoveResponse answers DELETE /api/collection/{id}.
type CollectionRemoveResponse struct {
	Success      bool  `json:"success"`
	CollectionID int64 `json:"collection_id"`
}

// WantedItemView is one watch-list entry.
type WantedItemView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	ContentType string    `json:"content_type"`
	CatalogID   int64     `json:"catalog_id,omitempty"`
	PosterRef   string    `json:"poster_ref,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// WantedResponse answers GET /api/wanted.
type WantedResponse struct {
	Items []WantedItemView `json:"items"`
}

// WantedAddRequest is the body of POST /api/wanted. ContentType defaults to
// movie; year, catalog id, and poster are filled from the catalog when the
// lookup succeeds.
type WantedAddRequest struct {
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// WantedAddResponse answers POST /api/wanted with the stored row.
type WantedAddResponse struct {
	Success bool           `json:"success"`
	Item    WantedItemView `json:"item"`
}

// WantedRemoveResponse answers DELETE /api/wanted/{id}.
type WantedRemoveResponse struct {
	Success  bool  `json:"success"`
	WantedID int64 `json:"wanted_id"`
}

// CatalogResult is one candidate from the catalog search proxy.
type CatalogResult struct {
	CatalogID  int64   `json:"catalog_id"`
	Title      string  `json:"title"`
	Year       int     `json:"year,omitempty"`
	Overview   string  `json:"overview,omitempty"`
	PosterRef  string  `json:"poster_ref,omitempty"`
	Popularity float64 `json:"popularity"`
}

// CatalogSearchResponse answers GET /api/catalog/search.
type CatalogSearchResponse struct {
	Results []CatalogResult `json:"results"`
}

// OversightCheckResponse answers GET /api/oversight/check.
type OversightCheckResponse struct {
	Issues []string `json:"issues"`
	Count  int      `json:"count"`
}

// FixEncodingResponse answers POST /api/oversight/fix-encoding.
type FixEncodingResponse struct {
	Fixed int `json:"fixed"`
}

// ActiveModeResponse answers the active-mode endpoints.
type ActiveModeResponse struct {
	Active bool `json:"active"`
}

// NotificationTestResponse answers POST /api/notifications/test.
type NotificationTestResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
