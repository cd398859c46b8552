package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/auroramedia/gramflow/entity"
	"github.com/auroramedia/gramflow/http/controller/dto"
	"github.com/auroramedia/gramflow/infra/produce"
	"github.com/auroramedia/gramflow/utils"
)

// SchedulePost validates and enqueues one scheduled post. Validation
// failures never reach the job store.
func (ctrl *Controller) SchedulePost(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SchedulePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	mediaURL := req.ResolvedMediaURL()
	if req.Account == "" || mediaURL == "" || req.When == "" {
		utils.JSON400(c, "Missing account/mediaUrl/when")
		return
	}

	if !utils.ValidMediaURL(mediaURL) {
		utils.JSON400(c, "mediaUrl must be an absolute http(s) URL")
		return
	}

	if _, ok := ctrl.Config.Accounts.Lookup(req.Account); !ok {
		utils.JSON400(c, "Unknown account: "+req.Account)
		return
	}

	scheduledAt, err := utils.ParseScheduleTime(req.When)
	if err != nil {
		utils.JSON400(c, "Unparsable when: "+req.When)
		return
	}

	job := &entity.PostJob{
		Account:     req.Account,
		Caption:     req.Caption,
		MediaURL:    mediaURL,
		MediaType:   utils.MediaTypeFromURL(mediaURL),
		ScheduledAt: scheduledAt,
		Status:      entity.PostJobStatusQueued,
	}

	if err := ctrl.Repository.PostJobRepo.Create(job); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Post] Failed to create job for account %q", req.Account)
		utils.JSON500(c, "Failed to create scheduled post")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Post] Scheduled %s for %q at %s", job.ID, job.Account, job.ScheduledAt.Format(time.RFC3339))

	if ctrl.Infra.Produce != nil {
		event := produce.PostEventMessage{
			JobID:   job.ID.String(),
			Account: job.Account,
			Status:  "scheduled",
		}
		if err := ctrl.Infra.Produce.SchedulerService.PublishPostEvent(ctx, event); err != nil {
			ctrl.Infra.Logger.WarningWithContextf(ctx, "[Post] Failed to emit scheduled event for %s: %v", job.ID, err)
		}
	}

	utils.JSON201(c, job)
}

// ListPosts returns all jobs for inspection, optionally filtered by status.
func (ctrl *Controller) ListPosts(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", entity.PostJobStatusQueued, entity.PostJobStatusPublishing,
		entity.PostJobStatusDone, entity.PostJobStatusFailed:
	default:
		utils.JSON400(c, "Unknown status filter: "+status)
		return
	}

	jobs, err := ctrl.Repository.PostJobRepo.List(status)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Post] Failed to list jobs")
		utils.JSON500(c, "Failed to list posts")
		return
	}
	utils.JSON200(c, gin.H{"posts": jobs, "count": len(jobs)})
}

func (ctrl *Controller) GetPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid post id")
		return
	}

	job, err := ctrl.Repository.PostJobRepo.FindByID(id)
	if err != nil {
		utils.JSON404(c, "Post not found")
		return
	}
	utils.JSON200(c, job)
}

// PublishNow pulls a queued job's schedule time to the present and runs one
// tick synchronously. Terminal jobs are rejected: re-running a failed post
// is an explicit re-enqueue, not a status rewind.
func (ctrl *Controller) PublishNow(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid post id")
		return
	}

	job, err := ctrl.Repository.PostJobRepo.FindByID(id)
	if err != nil {
		utils.JSON404(c, "Post not found")
		return
	}
	if job.Status != entity.PostJobStatusQueued {
		utils.JSON409(c, "Post is "+job.Status+", only queued posts can be published now")
		return
	}

	job.ScheduledAt = time.Now().UTC()
	if err := ctrl.Repository.PostJobRepo.Update(job); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Post] Failed to reschedule %s for immediate publish", job.ID)
		utils.JSON500(c, "Failed to reschedule post")
		return
	}

	processed, err := ctrl.Scheduler.RunTick(ctx)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Post] Immediate tick failed for %s", job.ID)
		utils.JSON500(c, "Failed to run scheduler tick")
		return
	}
	utils.JSON200(c, gin.H{"ok": true, "processed": processed})
}

// RunScheduler synchronously executes one due-scan. This is the deployment
// mode where an external cron drives the scheduler instead of the daemon's
// timer.
func (ctrl *Controller) RunScheduler(c *gin.Context) {
	ctx := c.Request.Context()

	processed, err := ctrl.Scheduler.RunTick(ctx)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Scheduler] Manual tick failed")
		utils.JSON500(c, "Scheduler tick failed")
		return
	}
	utils.JSON200(c, gin.H{"ok": true, "processed": processed})
}
