package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Profile    *ProfileHandler
	Skill      *SkillHandler
	Job        *JobHandler
	Reputation *ReputationHandler
	Dispute    *DisputeHandler
	Media      *MediaHandler
}

// RegisterRoutes mounts the ledger API under /api. Media routes are skipped when no uploader is configured.
func RegisterRoutes(router *gin.Engine, h Handlers, authMiddleware, errorMiddleware gin.HandlerFunc) {
	router.Use(errorMiddleware)

	api := router.Group("/api")
	{
		public := api.Group("/")
		{
			public.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

			public.GET("/users/count", h.Profile.Counts)
			public.GET("/profiles/:address", h.Profile.GetProfile)
			public.GET("/profiles/:address/skills", h.Skill.ListByOwner)

			public.GET("/skills/count", h.Skill.Count)
			public.GET("/skills/:id", h.Skill.GetSkill)

			public.GET("/jobs", h.Job.ListJobs)
			public.GET("/jobs/count", h.Job.Counts)
			public.GET("/jobs/:id", h.Job.GetJob)
			public.GET("/ledger/confirmation-window", h.Job.ConfirmationWindow)

			public.GET("/freelancers/top", h.Reputation.TopFreelancers)
			public.GET("/freelancers/:address/ratings", h.Reputation.ListRatings)
			public.GET("/freelancers/:address/reputation", h.Reputation.GetReputation)
		}

		private := api.Group("/")
		private.Use(authMiddleware)
		{
			private.POST("/profiles", h.Profile.CreateProfile)
			private.PUT("/profiles/me/freelancer", h.Profile.UpdateFreelancer)
			private.POST("/skills", h.Skill.CreateSkill)

			jobs := private.Group("/jobs")
			{
				jobs.POST("", h.Job.CreateJob)
				jobs.POST("/:id/publish", h.Job.PublishJob)
				jobs.POST("/:id/assign", h.Job.AssignJob)
				jobs.POST("/:id/complete", h.Job.CompleteJob)
				jobs.POST("/:id/settle", h.Job.SettleJob)
				jobs.DELETE("/:id", h.Job.DeleteJob)
				jobs.POST("/:id/feedback", h.Reputation.GiveFeedback)
				jobs.POST("/:id/disputes", h.Dispute.RaiseDispute)
				jobs.POST("/:id/disputes/resolve", h.Dispute.ResolveDispute)
				jobs.GET("/:id/disputes", h.Dispute.ListDisputes)
			}

			private.GET("/balances/:token", h.Dispute.GetBalance)

			if h.Media != nil {
				private.POST("/media", h.Media.UploadMedia)
				private.DELETE("/media", h.Media.DeleteMedia)
			}
		}
	}
}
