package api

import (
	"platter/internal/identification/tmdb"
	"platter/internal/queue"
	"platter/internal/workflow"
)

// JobViewFrom renders a queue job for the wire.
func JobViewFrom(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	return JobView{
		ID:              job.ID,
		DriveID:         job.DriveID,
		DiscLabel:       job.DiscLabel,
		Status:          string(job.Status),
		ContentType:     string(job.ContentType),
		IdentifiedTitle: job.IdentifiedTitle,
		IdentifiedYear:  job.IdentifiedYear,
		CatalogID:       job.CatalogID,
		Confidence:      job.Confidence,
		PosterRef:       job.PosterRef,
		RipPath:         job.RipPath,
		EncodePath:      job.EncodePath,
		FinalPath:       job.FinalPath,
		ErrorMessage:    job.ErrorMessage,
		ProgressStage:   job.ProgressStage,
		ProgressPercent: job.ProgressPercent,
		ProgressMessage: job.ProgressMessage,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

// JobViewsFrom renders a job list, preserving order.
func JobViewsFrom(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, JobViewFrom(job))
	}
	return views
}

// MutationResponseFrom summarizes a mutated job for the wire.
func MutationResponseFrom(job *queue.Job) MutationResponse {
	if job == nil {
		return MutationResponse{}
	}
	return MutationResponse{
		Success:         true,
		JobID:           job.ID,
		Status:          string(job.Status),
		IdentifiedTitle: job.IdentifiedTitle,
		IdentifiedYear:  job.IdentifiedYear,
		ErrorMessage:    job.ErrorMessage,
	}
}

// CollectionViewFrom renders a library ledger row.
func CollectionViewFrom(item *queue.CollectionItem) CollectionItemView {
	if item == nil {
		return CollectionItemView{}
	}
	return CollectionItemView{
		ID:          item.ID,
		ContentType: string(item.ContentType),
		Title:       item.Title,
		Year:        item.Year,
		CatalogID:   item.CatalogID,
		FinalPath:   item.FinalPath,
		AddedAt:     item.AddedAt,
	}
}

// CollectionViewsFrom renders the library ledger, preserving order.
func CollectionViewsFrom(items []*queue.CollectionItem) []CollectionItemView {
	views := make([]CollectionItemView, 0, len(items))
	for _, item := range items {
		views = append(views, CollectionViewFrom(item))
	}
	return views
}

// WantedViewFrom renders a watch-list row.
func WantedViewFrom(item *queue.WantedItem) WantedItemView {
	if item == nil {
		return WantedItemView{}
	}
	return WantedItemView{
		ID:          item.ID,
		Title:       item.Title,
		Year:        item.Year,
		ContentType: string(item.ContentType),
		CatalogID:   item.CatalogID,
		PosterRef:   item.PosterRef,
		Notes:       item.Notes,
		AddedAt:     item.AddedAt,
	}
}

// WantedViewsFrom renders the watch list, preserving order.
func WantedViewsFrom(items []*queue.WantedItem) []WantedItemView {
	views := make([]WantedItemView, 0, len(items))
	for _, item := range items {
		views = append(views, WantedViewFrom(item))
	}
	return views
}

// CatalogResultsFrom renders catalog search matches, preserving order.
func CatalogResultsFrom(results []tmdb.Result) []CatalogResult {
	out := make([]CatalogResult, 0, len(results))
	for _, result := range results {
		out = append(out, CatalogResult{
			CatalogID:  result.ID,
			Title:      result.Title,
			Year:       result.Year(),
			Overview:   result.Overview,
			PosterRef:  result.PosterPath,
			Popularity: result.Popularity,
		})
	}
	return out
}

// WorkflowViewFrom renders the supervisor summary.
func WorkflowViewFrom(summary workflow.StatusSummary) WorkflowView {
	counts := make(map[string]int, len(summary.Counts))
	for status, count := range summary.Counts {
		counts[string(status)] = count
	}
	stages := make([]StageHealthView, 0, len(summary.Stages))
	for _, health := range summary.Stages {
		stages = append(stages, StageHealthView{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return WorkflowView{
		Running:   summary.Running,
		LastError: summary.LastError,
		Counts:    counts,
		Stages:    stages,
	}
}
