package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/ledger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (a *API) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	in := ledger.NewJob{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
	}
	if req.Freelancer != "" {
		addr, err := identity.Parse(req.Freelancer)
		if err != nil {
			a.fail(c, err)
			return
		}
		in.Freelancer = addr
	}
	if req.Amount != "" {
		amt, err := escrow.ParseAmount(req.Amount)
		if err != nil {
			a.fail(c, err)
			return
		}
		in.Amount = amt
	}

	j, err := a.ledger.CreateJob(c.Request.Context(), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Header("Location", "/v1/jobs/"+j.ID.String())
	c.JSON(http.StatusCreated, newJobResponse(j))
}

func (a *API) getJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	j, err := a.ledger.GetJob(c.Request.Context(), jobID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newJobResponse(j))
}

// listJobs handles GET /v1/jobs?status=&participant=&as=&limit=&offset=.
func (a *API) listJobs(c *gin.Context) {
	opts, err := listOpts(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	jobs, err := a.ledger.ListJobs(ctx, opts)
	if err != nil {
		a.fail(c, err)
		return
	}
	total, err := a.ledger.CountJobs(ctx, job.CountOpts{
		Status:      opts.Status,
		Participant: opts.Participant,
		As:          opts.As,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, len(jobs)), Total: total}
	for i, j := range jobs {
		resp.Jobs[i] = newJobResponse(j)
	}
	c.JSON(http.StatusOK, resp)
}

func listOpts(c *gin.Context) (job.ListOpts, error) {
	opts := job.ListOpts{Limit: defaultListLimit}

	if s := c.Query("status"); s != "" {
		st := job.Status(s)
		if !st.Valid() {
			return opts, fmt.Errorf("unknown status %q", s)
		}
		opts.Status = st
	}
	if p := c.Query("participant"); p != "" {
		addr, err := identity.Parse(p)
		if err != nil {
			return opts, err
		}
		opts.Participant = addr
	}
	switch side := job.Side(c.Query("as")); side {
	case job.SideAny, job.SideClient, job.SideFreelancer:
		opts.As = side
	default:
		return opts, fmt.Errorf("unknown side %q", side)
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("invalid limit %q", v)
		}
		opts.Limit = min(n, maxListLimit)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid offset %q", v)
		}
		opts.Offset = n
	}
	return opts, nil
}

func (a *API) listTransfers(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	ts, err := a.ledger.Transfers(c.Request.Context(), jobID)
	if err != nil {
		a.fail(c, err)
		return
	}
	if ts == nil {
		ts = []*escrow.Transfer{}
	}
	c.JSON(http.StatusOK, ts)
}

// ── Transitions ─────────────────────────────────────

type transitionFunc func(ctx context.Context, jobID id.JobID) (*job.Job, error)

func (a *API) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID, ok := jobIDParam(c)
		if !ok {
			return
		}
		j, err := fn(c.Request.Context(), jobID)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, newJobResponse(j))
	}
}

func (a *API) acceptJob(c *gin.Context)       { a.transition(a.ledger.AcceptJob)(c) }
func (a *API) confirmDelivery(c *gin.Context) { a.transition(a.ledger.ConfirmDelivery)(c) }
func (a *API) cancelJob(c *gin.Context)       { a.transition(a.ledger.CancelJob)(c) }
func (a *API) raiseDispute(c *gin.Context)    { a.transition(a.ledger.RaiseDispute)(c) }

func (a *API) deliverWork(c *gin.Context) {
	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a.transition(func(ctx context.Context, jobID id.JobID) (*job.Job, error) {
		return a.ledger.DeliverWork(ctx, jobID, req.Ref)
	})(c)
}

func (a *API) resolveDispute(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	outcome, err := escrow.ParseOutcome(req.Outcome)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.transition(func(ctx context.Context, jobID id.JobID) (*job.Job, error) {
		if a.resolver != nil {
			return a.resolver.Resolve(ctx, jobID, outcome)
		}
		return a.ledger.ResolveDispute(ctx, jobID, outcome)
	})(c)
}

func jobIDParam(c *gin.Context) (id.JobID, bool) {
	jobID, err := id.ParseJobID(c.Param("jobId"))
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid job ID: %v", err))
		return id.NoJob, false
	}
	return jobID, true
}
