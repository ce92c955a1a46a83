package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/folio/internal/advice"
	"github.com/newthinker/folio/internal/api/job"
	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
)

const (
	adviceJobType = "advice"
	adviceTimeout = 5 * time.Minute
)

// AdviceApp defines the interface needed from app.App.
type AdviceApp interface {
	AdvicePayload(ctx context.Context, profileID string) (portfolio.PortfolioPayload, error)
	GenerateAdvice(ctx context.Context, payload portfolio.PortfolioPayload) (*advice.Advice, error)
}

// JobsGauge receives the number of unfinished jobs.
type JobsGauge interface {
	SetJobsActive(jobType string, count int)
}

// AdviceHandler handles advice API requests.
type AdviceHandler struct {
	app      AdviceApp
	jobStore *job.Store
	gauge    JobsGauge
}

// NewAdviceHandler creates a new advice handler. gauge may be nil.
func NewAdviceHandler(app AdviceApp, jobStore *job.Store, gauge JobsGauge) *AdviceHandler {
	return &AdviceHandler{app: app, jobStore: jobStore, gauge: gauge}
}

// Create generates advice for a profile. With ?async=true the profile is
// checked, a job is started and its id returned right away.
func (h *AdviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := h.app.AdvicePayload(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if !async {
		adv, err := h.app.GenerateAdvice(r.Context(), payload)
		if err != nil {
			response.Fail(w, err)
			return
		}
		response.JSON(w, http.StatusOK, adv)
		return
	}

	j := h.jobStore.Create(adviceJobType)
	h.reportActive()

	go h.runAdvice(j.ID, payload)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// runAdvice executes the advice request and updates job status.
func (h *AdviceHandler) runAdvice(jobID string, payload portfolio.PortfolioPayload) {
	defer h.reportActive()

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), adviceTimeout)
	defer cancel()
	adv, err := h.app.GenerateAdvice(ctx, payload)

	if err != nil {
		var coreErr *core.Error
		if !errors.As(err, &coreErr) {
			coreErr = core.WrapError(core.ErrLLMFailed, err)
		}
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = coreErr
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = adv
	})
}

func (h *AdviceHandler) reportActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(adviceJobType, h.jobStore.Active(adviceJobType))
	}
}

// GetJob returns the status of an async job.
func (h *AdviceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"type":     j.Type,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		detail := map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
		if j.Error.Cause != nil {
			detail["cause"] = j.Error.Cause.Error()
		}
		resp["error"] = detail
	}

	response.JSON(w, http.StatusOK, resp)
}
