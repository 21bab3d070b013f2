package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brandsignal/compass/internal/analysis"
	"github.com/brandsignal/compass/internal/brief"
	"github.com/brandsignal/compass/internal/engine"
	"github.com/brandsignal/compass/internal/logging"
	"github.com/brandsignal/compass/internal/metrics"
	"github.com/brandsignal/compass/internal/middleware"
	"github.com/brandsignal/compass/internal/models"
	"github.com/brandsignal/compass/internal/store"
)

var (
	db             *store.Store
	contentLog     *store.ContentLog
	runner         *analysis.Runner
	composer       *brief.Composer
	logger         logging.Logger
	serviceMetrics *metrics.Metrics
)

// Init initializes the handlers package with its collaborators
func Init(s *store.Store, cl *store.ContentLog, r *analysis.Runner, bc *brief.Composer, log logging.Logger, m *metrics.Metrics) {
	db = s
	contentLog = cl
	runner = r
	composer = bc
	logger = log
	serviceMetrics = m
}

// RegisterRoutes mounts the brand-scoped API. Mutation endpoints require the
// service token; reads only need a valid brand header.
func RegisterRoutes(router *gin.Engine, serviceToken string) {
	v1 := router.Group("/api/v1")

	v1.GET("/metrics/computed", GetComputedMetrics)
	v1.GET("/growth", GetGrowth)
	v1.GET("/campaigns", ListCampaigns)
	v1.GET("/campaigns/performance", GetCampaignPerformance)
	v1.GET("/content/ranked", GetRankedContent)
	v1.GET("/tasks", ListTasks)
	v1.GET("/summary", GetSummary)
	v1.GET("/brief/latest", GetLatestBrief)

	authed := v1.Group("")
	authed.Use(middleware.ServiceAuthMiddleware(serviceToken))
	authed.Use(middleware.TimeoutMiddleware(2 * time.Minute))
	authed.POST("/campaigns", CreateCampaign)
	authed.POST("/tasks/:id/approve", ApproveTask)
	authed.POST("/tasks/:id/dismiss", DismissTask)
	authed.POST("/analysis/run", RunAnalysis)
	authed.POST("/brief", CreateBrief)
}

// brandID extracts and validates the X-Brand-ID header. An empty or
// malformed header aborts the request.
func brandID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-Brand-ID")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Brand-ID header required"})
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Brand-ID must be a UUID"})
		return "", false
	}
	return id, true
}

// GetComputedMetrics returns the latest on-chain rollup for the brand
func GetComputedMetrics(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	snapshots, err := db.LatestSnapshots(c.Request.Context(), brand, 1)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to load metric snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load metrics"})
		return
	}
	if len(snapshots) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis has run for this brand"})
		return
	}
	c.JSON(http.StatusOK, snapshots[0].OnChain)
}

// GetGrowth returns the period-over-period growth report
func GetGrowth(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	snapshots, err := db.LatestSnapshots(c.Request.Context(), brand, 2)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to load snapshots for growth report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load growth report"})
		return
	}
	if len(snapshots) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis has run for this brand"})
		return
	}

	var previous *models.SocialMetrics
	if len(snapshots) > 1 {
		previous = &snapshots[1].Social
	}
	c.JSON(http.StatusOK, engine.CompareSnapshots(snapshots[0].Social, previous))
}

// ListCampaigns returns the brand's campaign logs
func ListCampaigns(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	logs, err := db.ListCampaignLogs(c.Request.Context(), brand)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to list campaign logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list campaigns"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": logs})
}

type createCampaignRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	Budget    float64   `json:"budget"`
	Channel   string    `json:"channel" binding:"required"`
}

// CreateCampaign records a new immutable campaign log
func CreateCampaign(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign payload: " + err.Error()})
		return
	}
	if req.EndDate.Before(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not precede start_date"})
		return
	}

	log, err := db.CreateCampaignLog(c.Request.Context(), brand, models.CampaignLog{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Budget:    req.Budget,
		Channel:   req.Channel,
	})
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to create campaign log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign"})
		return
	}
	c.JSON(http.StatusCreated, log)
}

// GetCampaignPerformance returns the attribution ranking. ROI ranking
// excludes zero-budget campaigns; lift ranking includes every campaign.
func GetCampaignPerformance(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	ranking := c.DefaultQuery("ranking", "roi")
	if ranking != "roi" && ranking != "lift" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ranking must be roi or lift"})
		return
	}

	snapshots, err := db.LatestSnapshots(c.Request.Context(), brand, 1)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to load snapshot for campaign ranking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign performance"})
		return
	}
	if len(snapshots) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis has run for this brand"})
		return
	}

	campaigns := snapshots[0].OnChain.Campaigns
	var ranked []models.CampaignPerformance
	if ranking == "roi" {
		ranked = engine.RankByROI(campaigns)
	} else {
		ranked = engine.RankByLift(campaigns)
	}
	c.JSON(http.StatusOK, gin.H{"ranking": ranking, "campaigns": ranked})
}

// GetRankedContent returns the merged, deduplicated, sorted content rows.
// The in-memory live feed takes precedence over the historical log.
func GetRankedContent(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	field, err := engine.ParseSortField(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order := c.DefaultQuery("order", "desc")
	if order != "asc" && order != "desc" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be asc or desc"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}

	history, err := contentLog.History(c.Request.Context(), brand, 0)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to load content history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load content"})
		return
	}

	live := make([]models.ContentRow, 0)
	for _, post := range runner.Last(brand).Social.RecentPosts {
		live = append(live, models.ContentRowFromPost(post, "twitter"))
	}

	rows := engine.RankContent(field, order == "asc", limit, live, history)
	c.JSON(http.StatusOK, gin.H{"content": rows})
}

// ListTasks returns the brand's current strategy task list in stored order
func ListTasks(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	tasks, err := db.ListTasks(c.Request.Context(), brand)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to list tasks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ApproveTask moves a pending task to approved
func ApproveTask(c *gin.Context) {
	transitionTask(c, models.TaskApproved)
}

// DismissTask moves a pending task to dismissed
func DismissTask(c *gin.Context) {
	transitionTask(c, models.TaskDismissed)
}

func transitionTask(c *gin.Context, to models.TaskStatus) {
	brand, ok := brandID(c)
	if !ok {
		return
	}
	taskID := c.Param("id")

	task, err := db.GetTask(c.Request.Context(), brand, taskID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		logger.WithError(err).WithField("task_id", taskID).Error("Failed to load task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load task"})
		return
	}

	task, err = engine.Transition(task, to)
	if errors.Is(err, engine.ErrTerminalTask) {
		c.JSON(http.StatusConflict, gin.H{"error": "Task is already " + string(task.Status)})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if err := db.UpdateTaskStatus(c.Request.Context(), brand, taskID, task.Status); err != nil {
		logger.WithError(err).WithField("task_id", taskID).Error("Failed to update task status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}
	if serviceMetrics != nil {
		serviceMetrics.TaskTransitions.WithLabelValues(string(task.Status)).Inc()
	}
	c.JSON(http.StatusOK, task)
}

// RunAnalysis triggers a full analysis pass for the brand
func RunAnalysis(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	result, err := runner.Run(c.Request.Context(), brand)
	if err != nil {
		middleware.GetContextLogger(c, logger).WithError(err).Error("Manual analysis run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"computed_at": result.Metrics.ComputedAt,
		"campaigns":   len(result.Metrics.Campaigns),
		"tasks":       len(result.Tasks),
		"signals":     len(result.Trends),
	})
}

// GetSummary returns the brand's decision summary
func GetSummary(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, runner.Summary(brand))
}

// GetLatestBrief returns the most recent stored brief
func GetLatestBrief(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	record, err := db.LatestBrief(c.Request.Context(), brand)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No brief generated yet"})
		return
	}
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to load brief")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load brief"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// CreateBrief composes and stores a new daily brief from the last run's
// outputs. Requires a completed analysis run this session.
func CreateBrief(c *gin.Context) {
	brand, ok := brandID(c)
	if !ok {
		return
	}

	last := runner.Last(brand)
	if last.Metrics.ComputedAt.IsZero() {
		c.JSON(http.StatusConflict, gin.H{"error": "No analysis has run this session; trigger /analysis/run first"})
		return
	}

	metricsCopy := last.Metrics
	record, err := composer.Compose(c.Request.Context(), brief.Inputs{
		BrandID:  brand,
		Metrics:  &metricsCopy,
		Growth:   last.Growth,
		Tasks:    last.Tasks,
		Trends:   last.Trends,
		Insights: runner.Insights(brand),
	})
	if err != nil {
		middleware.GetContextLogger(c, logger).WithError(err).Error("Brief composition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compose brief"})
		return
	}

	saved, err := db.SaveBrief(c.Request.Context(), record)
	if err != nil {
		logger.WithError(err).WithField("brand_id", brand).Error("Failed to store brief")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store brief"})
		return
	}
	runner.MarkBriefGenerated(brand)
	if serviceMetrics != nil {
		serviceMetrics.BriefGenerations.WithLabelValues("success").Inc()
	}
	c.JSON(http.StatusCreated, saved)
}
