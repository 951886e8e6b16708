package domain_test

import (
	"testing"

	"campground_ingest/internal/domain"
)

func TestTriggerRequest_FetchRequest(t *testing.T) {
	req, err := domain.TriggerRequest{Component: "US", Sort: "Name", PageNumber: 2, PageSize: 50, Persist: true}.FetchRequest()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.BBox != domain.BBoxUS || req.Sort != domain.SortName || req.PageNumber != 2 || req.PageSize != 50 || !req.Persist {
		t.Fatalf("unexpected request: %+v", req)
	}

	tr, err := domain.TriggerRequest{Component: "tr", Sort: "Recommended", PageNumber: 1, PageSize: 1}.FetchRequest()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tr.BBox != domain.BBoxTR || tr.Sort != domain.SortRecommended {
		t.Fatalf("unexpected request: %+v", tr)
	}
}

func TestTriggerRequest_Rejects(t *testing.T) {
	cases := map[string]domain.TriggerRequest{
		"component": {Component: "FR", Sort: "Name", PageNumber: 1, PageSize: 1},
		"sort":      {Component: "US", Sort: "rating", PageNumber: 1, PageSize: 1},
		"page low":  {Component: "US", PageNumber: 0, PageSize: 1},
		"page high": {Component: "US", PageNumber: 6, PageSize: 1},
		"size low":  {Component: "US", PageNumber: 1, PageSize: 0},
		"size high": {Component: "US", PageNumber: 1, PageSize: 501},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := tc.FetchRequest(); err == nil {
				t.Fatalf("expected error for %+v", tc)
			}
		})
	}
}

func TestFetchRequest_ValidateDefaultsBBox(t *testing.T) {
	req := domain.FetchRequest{Sort: domain.SortRecommended, PageNumber: 1, PageSize: 2}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.BBox != domain.BBoxUS {
		t.Fatalf("expected default bbox, got %q", req.BBox)
	}
}

func TestFetchError_Retryable(t *testing.T) {
	if !(&domain.FetchError{Kind: domain.FetchTransient}).Retryable() {
		t.Fatalf("transient should be retryable")
	}
	for _, k := range []domain.FetchErrorKind{domain.FetchClientError, domain.FetchMalformedResponse, domain.FetchMaxRetriesExceeded} {
		if (&domain.FetchError{Kind: k}).Retryable() {
			t.Fatalf("%s should not be retryable", k)
		}
	}
}
