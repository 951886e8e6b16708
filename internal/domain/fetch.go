package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxPageNumber = 5
	MaxPageSize   = 500

	BBoxUS = "-101.792,18.75,-90.93,52.334"
	BBoxTR = "25.66,35.81,44.83,42.11"
)

// Sort is the upstream sort token.
type Sort string

const (
	SortRecommended Sort = "recommended"
	SortName        Sort = "name-raw"
)

// FetchRequest parameterizes one upstream search query.
type FetchRequest struct {
	BBox       string `json:"bbox"`
	Sort       Sort   `json:"sort"`
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	Persist    bool   `json:"persist"`
}

// Validate checks bounds and fills the default bounding box.
func (r *FetchRequest) Validate() error {
	if r.BBox == "" {
		r.BBox = BBoxUS
	}
	if r.Sort == "" {
		r.Sort = SortRecommended
	}
	if r.Sort != SortRecommended && r.Sort != SortName {
		return fmt.Errorf("invalid sort %q", r.Sort)
	}
	if r.PageNumber < 1 || r.PageNumber > MaxPageNumber {
		return fmt.Errorf("page number must be between 1 and %d", MaxPageNumber)
	}
	if r.PageSize < 1 || r.PageSize > MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// TriggerRequest is the on-demand ingestion input exposed to callers.
type TriggerRequest struct {
	Component  string // US|TR
	Sort       string // Recommended|Name
	PageNumber int
	PageSize   int
	Persist    bool
}

var componentBBox = map[string]string{
	"US": BBoxUS,
	"TR": BBoxTR,
}

var sortTokens = map[string]Sort{
	"recommended": SortRecommended,
	"name":        SortName,
}

// FetchRequest validates the trigger and translates it to upstream parameters.
func (t TriggerRequest) FetchRequest() (FetchRequest, error) {
	comp := strings.ToUpper(strings.TrimSpace(t.Component))
	if comp == "" {
		comp = "US"
	}
	bbox, ok := componentBBox[comp]
	if !ok {
		return FetchRequest{}, fmt.Errorf("invalid component %q (want US or TR)", t.Component)
	}
	s := strings.ToLower(strings.TrimSpace(t.Sort))
	if s == "" {
		s = "recommended"
	}
	sort, ok := sortTokens[s]
	if !ok {
		return FetchRequest{}, fmt.Errorf("invalid sort %q (want Recommended or Name)", t.Sort)
	}
	req := FetchRequest{
		BBox:       bbox,
		Sort:       sort,
		PageNumber: t.PageNumber,
		PageSize:   t.PageSize,
		Persist:    t.Persist,
	}
	if err := req.Validate(); err != nil {
		return FetchRequest{}, err
	}
	return req, nil
}

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

const (
	TriggerScheduled = "scheduled"
	TriggerOnDemand  = "on_demand"
	TriggerCLI       = "cli"
)

// RunSummary aggregates one ingestion run.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	Trigger    string       `json:"trigger"`
	Status     RunStatus    `json:"status"`
	Request    FetchRequest `json:"request"`
	Fetched    int          `json:"fetched"`
	Valid      int          `json:"valid"`
	Inserted   int          `json:"inserted"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	FailedIDs  []string     `json:"failed_ids"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Error      string       `json:"error,omitempty"`
}
