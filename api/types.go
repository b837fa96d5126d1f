package api

import (
	"time"

	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/ledger"
)

// CreateJobRequest is the body of POST /v1/jobs. Amount is a decimal
// string in the smallest unit (wei).
type CreateJobRequest struct {
	Freelancer  string    `json:"freelancer"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Deadline    time.Time `json:"deadline"`
}

// DeliverRequest is the body of POST /v1/jobs/:jobId/deliver.
type DeliverRequest struct {
	Ref string `json:"ref"`
}

// ResolveRequest is the body of POST /v1/jobs/:jobId/resolve.
type ResolveRequest struct {
	Outcome string `json:"outcome"`
}

// JobResponse is a job with the actions its status still permits.
type JobResponse struct {
	*job.Job
	StatusCode int          `json:"status_code"`
	Allowed    []job.Action `json:"allowed_actions"`
}

func newJobResponse(j *job.Job) JobResponse {
	allowed := ledger.Allowed(j.Status)
	if allowed == nil {
		allowed = []job.Action{}
	}
	return JobResponse{Job: j, StatusCode: j.Status.Code(), Allowed: allowed}
}

// ListJobsResponse is the body of GET /v1/jobs.
type ListJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int64         `json:"total"`
}

// BalanceResponse is the body of GET /v1/accounts/:address/balance.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}
