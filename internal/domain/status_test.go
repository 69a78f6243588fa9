package domain

import (
	"reflect"
	"testing"
)

func pg(idx int, state string, requested bool) Page {
	return Page{Index: idx, State: state, Requested: requested}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		pages   []Page
		status  string
		done    int
		current *int
		failed  []int
	}{
		{
			name:   "nothing requested",
			pages:  []Page{pg(0, PagePending, false), pg(1, PagePending, false)},
			status: StatusPending,
		},
		{
			name:    "in flight reports lowest processing index",
			pages:   []Page{pg(0, PageCompleted, true), pg(3, PageProcessing, true), pg(2, PageProcessing, true)},
			status:  StatusProcessing,
			done:    1,
			current: intPtr(2),
		},
		{
			name:   "processing wins over failure",
			pages:  []Page{pg(0, PageFailed, true), pg(1, PageProcessing, true)},
			status: StatusProcessing,
			failed: []int{0},
		},
		{
			name:   "failure with nothing in flight",
			pages:  []Page{pg(2, PageFailed, true), pg(0, PageCompleted, true), pg(1, PageFailed, true)},
			status: StatusError,
			done:   1,
			failed: []int{1, 2},
		},
		{
			name:   "requested subset completed",
			pages:  []Page{pg(0, PageCompleted, true), pg(1, PagePending, false)},
			status: StatusCompleted,
			done:   1,
		},
		{
			name:   "released pages keep artifact processing",
			pages:  []Page{pg(0, PageCompleted, true), pg(1, PagePending, true)},
			status: StatusProcessing,
			done:   1,
		},
		{
			name:   "released pages with nothing completed are pending again",
			pages:  []Page{pg(0, PagePending, true), pg(1, PagePending, true), pg(2, PagePending, false)},
			status: StatusPending,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := DeriveStatus("a1", tc.pages)
			if st.Status != tc.status {
				t.Fatalf("status = %q; want %q", st.Status, tc.status)
			}
			if st.PagesProcessed != tc.done || st.TotalPages != len(tc.pages) {
				t.Fatalf("counts = %d/%d; want %d/%d", st.PagesProcessed, st.TotalPages, tc.done, len(tc.pages))
			}
			if (st.CurrentPage == nil) != (tc.current == nil) ||
				(st.CurrentPage != nil && *st.CurrentPage != *tc.current) {
				t.Fatalf("current page = %v; want %v", st.CurrentPage, tc.current)
			}
			if !reflect.DeepEqual(st.FailedPages, tc.failed) {
				t.Fatalf("failed pages = %v; want %v", st.FailedPages, tc.failed)
			}
		})
	}
}

func intPtr(i int) *int { return &i }
