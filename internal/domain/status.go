package domain

import "sort"

// Artifact-level status values reported to clients.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ProcessStatus is the derived, point-in-time view of an artifact's pages.
type ProcessStatus struct {
	FileID         string `json:"file_id"`
	Status         string `json:"status"`
	PagesProcessed int    `json:"pages_processed"`
	TotalPages     int    `json:"total_pages"`
	CurrentPage    *int   `json:"current_page,omitempty"`
	Pending        int    `json:"pending"`
	Processing     int    `json:"processing"`
	Completed      int    `json:"completed"`
	Failed         int    `json:"failed"`
	FailedPages    []int  `json:"failed_pages,omitempty"`
}

// DeriveStatus folds page rows into a ProcessStatus. Pages may be in any
// order. Precedence: a page in flight means processing; otherwise any failure
// means error; nothing completed means pending (never requested, or released
// back after an interruption); requested pages all completed means completed;
// a mix of completed and released pages is still processing.
func DeriveStatus(artifactID string, pages []Page) ProcessStatus {
	st := ProcessStatus{FileID: artifactID, TotalPages: len(pages)}

	requested, requestedDone := 0, 0
	for _, p := range pages {
		if p.Requested {
			requested++
		}
		switch p.State {
		case PagePending:
			st.Pending++
		case PageProcessing:
			st.Processing++
			if st.CurrentPage == nil || p.Index < *st.CurrentPage {
				idx := p.Index
				st.CurrentPage = &idx
			}
		case PageCompleted:
			st.Completed++
			requestedDone++
		case PageFailed:
			st.Failed++
			st.FailedPages = append(st.FailedPages, p.Index)
		}
	}
	st.PagesProcessed = st.Completed
	sort.Ints(st.FailedPages)

	switch {
	case st.Processing > 0:
		st.Status = StatusProcessing
	case st.Failed > 0:
		st.Status = StatusError
	case requested == 0, requestedDone == 0:
		st.Status = StatusPending
	case requestedDone == requested:
		st.Status = StatusCompleted
	default:
		st.Status = StatusProcessing
	}
	return st
}
