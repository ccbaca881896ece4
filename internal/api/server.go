package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hankyul/bidwatch/internal/ai"
	"github.com/hankyul/bidwatch/internal/auth"
	"github.com/hankyul/bidwatch/internal/config"
	"github.com/hankyul/bidwatch/internal/db"
	"github.com/hankyul/bidwatch/internal/models"
	"github.com/hankyul/bidwatch/internal/nara"
	"github.com/hankyul/bidwatch/internal/proposal"
	syncer "github.com/hankyul/bidwatch/internal/sync"
)

// maxUploadBytes bounds RFP uploads; procurement PDFs rarely exceed a few MB.
const maxUploadBytes = 20 * 1024 * 1024

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	AI          *ai.OllamaClient
	Settings    *config.Settings

	Client   *nara.Client
	Details  *nara.DetailFetcher
	Syncer   *syncer.Syncer
	Pipeline *proposal.Pipeline
}

func NewServer(pool *pgxpool.Pool, settings *config.Settings) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:5173"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	store := db.NewStore(pool)
	client := nara.NewClient(settings.API, settings.Filter.DefaultKeywords)
	aiClient := ai.NewOllamaClient(settings.Ollama)

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: auth.NewService(pool),
		Echo:        e,
		AI:          aiClient,
		Settings:    settings,
		Client:      client,
		Details:     nara.NewDetailFetcher(),
		Syncer:      syncer.New(client, store, settings),
		Pipeline:    proposal.NewLLMPipeline(aiClient, store),
	}

	// USE_STUB_PIPELINE switches drafting to canned stages for local
	// development without a running model.
	if os.Getenv("USE_STUB_PIPELINE") == "true" {
		s.Pipeline = proposal.NewStubPipeline()
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.GET("/bids", s.handleListBids)
	api.GET("/bids/:no/:ord", s.handleGetBid)
	api.GET("/bids/:no/:ord/summary", s.handleBidSummary)
	api.POST("/bids/:no/:ord/pin", s.handlePinBid)
	api.GET("/stats", s.handleGetStats)

	api.POST("/sync/update", s.handleSyncUpdate)
	api.POST("/sync/reset", s.handleSyncReset)
	api.GET("/sync/status", s.handleSyncStatus)
	api.GET("/sync/runs", s.handleSyncRuns)
	api.GET("/sync/test", s.handleSyncTest)

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	api.GET("/courses", s.handleListCourses)
	api.POST("/courses", s.handleUpsertCourse)

	drafts := api.Group("/drafts")
	drafts.Use(auth.Middleware)
	drafts.GET("", s.handleListDrafts)
	drafts.POST("", s.handleCreateDraft)
	drafts.POST("/upload", s.handleUploadDraft)
	drafts.GET("/:id", s.handleGetDraft)
	drafts.DELETE("/:id", s.handleDeleteDraft)
	drafts.POST("/:id/analyze", s.handleDraftAnalyze)
	drafts.POST("/:id/research", s.handleDraftResearch)
	drafts.POST("/:id/strategy", s.handleDraftStrategy)
	drafts.POST("/:id/match", s.handleDraftMatch)
	drafts.POST("/:id/finalize", s.handleDraftFinalize)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Bids

func (s *Server) handleListBids(c echo.Context) error {
	params := db.ListParams{
		Query:    c.QueryParam("q"),
		Region:   c.QueryParam("region"),
		Division: c.QueryParam("division"),
	}
	params.PinnedOnly = c.QueryParam("pinned") == "true"
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		params.Offset = o
	}

	result, err := s.Store.ListBids(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("Failed to list bids: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetBid(c echo.Context) error {
	bid, err := s.Store.GetBid(c.Request().Context(), c.Param("no"), c.Param("ord"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if bid == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, bid)
}

// handleBidSummary scrapes the notice's detail page on demand. Slow and best
// effort, so it is its own endpoint rather than part of the listing.
func (s *Server) handleBidSummary(c echo.Context) error {
	bid, err := s.Store.GetBid(c.Request().Context(), c.Param("no"), c.Param("ord"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if bid == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if bid.DetailURL == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Notice has no detail URL"})
	}

	summary, err := s.Details.FetchSummary(bid.DetailURL)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handlePinBid(c echo.Context) error {
	var req struct {
		Pinned bool `json:"pinned"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := s.Store.TogglePin(c.Request().Context(), c.Param("no"), c.Param("ord"), req.Pinned); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"pinned": req.Pinned})
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// Sync

func (s *Server) handleSyncUpdate(c echo.Context) error {
	result := s.Syncer.UpdateLatest(c.Request().Context())
	return s.renderSyncResult(c, result)
}

func (s *Server) handleSyncReset(c echo.Context) error {
	var req struct {
		Start   string `json:"start"`
		End     string `json:"end"`
		Confirm bool   `json:"confirm"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	result := s.Syncer.FullReset(c.Request().Context(),
		nara.Window{Start: req.Start, End: req.End}, req.Confirm)
	return s.renderSyncResult(c, result)
}

func (s *Server) renderSyncResult(c echo.Context, result syncer.Result) error {
	if result.Err != nil {
		status := http.StatusInternalServerError
		switch result.Err {
		case syncer.ErrAlreadyRunning:
			status = http.StatusConflict
		case syncer.ErrConfirmationRequired:
			status = http.StatusBadRequest
		}
		return c.JSON(status, map[string]interface{}{
			"error":     result.Err.Error(),
			"message":   result.Message,
			"debug_url": result.DebugURL,
		})
	}

	// The store, not the fetch result, is what clients display: retention
	// cleanup may have removed records the fetch itself brought in.
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":   result.Message,
		"debug_url": result.DebugURL,
		"scanned":   result.Scanned,
		"saved":     result.Saved,
		"bids":      s.Store.GetAllBids(c.Request().Context()),
	})
}

func (s *Server) handleSyncStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"state": string(s.Syncer.State())})
}

func (s *Server) handleSyncRuns(c echo.Context) error {
	limit := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		limit = l
	}
	runs, err := s.Store.ListSyncRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleSyncTest(c echo.Context) error {
	ok, msg := s.Client.Test(c.Request().Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]interface{}{"ok": ok, "message": msg})
}

// Auth

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// Courses

func (s *Server) handleListCourses(c echo.Context) error {
	courses, err := s.Store.ListCourses(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return c.JSON(http.StatusOK, courses)
}

func (s *Server) handleUpsertCourse(c echo.Context) error {
	var req struct {
		ID         string   `json:"id"`
		Title      string   `json:"title"`
		Instructor string   `json:"instructor"`
		Topics     []string `json:"topics"`
		IsExternal bool     `json:"is_external"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	id := uuid.New()
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid course ID"})
		}
		id = parsed
	}

	// The embedding is derived from title plus topics, the same text the
	// curriculum matcher queries against.
	var embedding []float32
	embedCtx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	vec, err := s.AI.GenerateEmbedding(embedCtx, req.Title+" "+strings.Join(req.Topics, " "))
	if err != nil {
		c.Logger().Warnf("Course embedding failed, storing without: %v", err)
	} else {
		embedding = vec
	}

	course := models.Course{
		ID:         id,
		Title:      req.Title,
		Instructor: req.Instructor,
		Topics:     req.Topics,
		IsExternal: req.IsExternal,
	}
	if err := s.Store.UpsertCourse(c.Request().Context(), course, embedding); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, course)
}

// Drafts

func (s *Server) handleListDrafts(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	limit := 0
	if l, convErr := strconv.Atoi(c.QueryParam("limit")); convErr == nil {
		limit = l
	}
	records, err := s.Store.ListDrafts(c.Request().Context(), &userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, records)
}

// handleCreateDraft starts a draft from a stored bid notice.
func (s *Server) handleCreateDraft(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req struct {
		Title     string `json:"title"`
		NoticeNo  string `json:"notice_no"`
		NoticeOrd string `json:"notice_ord"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.NoticeNo == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "notice_no is required"})
	}
	if req.NoticeOrd == "" {
		req.NoticeOrd = "00"
	}

	bid, err := s.Store.GetBid(c.Request().Context(), req.NoticeNo, req.NoticeOrd)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if bid == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Bid not found"})
	}

	title := req.Title
	if title == "" {
		title = bid.Title
	}
	draft := proposal.Draft{
		Title: title,
		Step:  proposal.StepUpload,
		RFP: &proposal.RFPMetadata{
			FileName:   bid.Title,
			UploadDate: time.Now(),
			Source:     "bid",
			Bid:        bid,
		},
	}

	id, err := s.Store.CreateDraft(c.Request().Context(), &userID, draft)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	draft.ID = id
	return c.JSON(http.StatusCreated, draft)
}

// handleUploadDraft starts a draft from an uploaded RFP document.
func (s *Server) handleUploadDraft(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to open upload"})
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
	}

	text, err := proposal.ExtractRFPText(content)
	if err != nil {
		c.Logger().Warnf("RFP text extraction failed for %s: %v", fileHeader.Filename, err)
	}

	title := c.FormValue("title")
	if title == "" {
		title = fileHeader.Filename
	}
	draft := proposal.Draft{
		Title: title,
		Step:  proposal.StepUpload,
		RFP: &proposal.RFPMetadata{
			FileName:   fileHeader.Filename,
			UploadDate: time.Now(),
			FileSize:   fileHeader.Size,
			Source:     "file",
			Text:       text,
		},
	}

	id, err := s.Store.CreateDraft(c.Request().Context(), &userID, draft)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	draft.ID = id
	return c.JSON(http.StatusCreated, draft)
}

func (s *Server) handleGetDraft(c echo.Context) error {
	rec, err := s.loadOwnedDraft(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteDraft(c echo.Context) error {
	rec, err := s.loadOwnedDraft(c)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteDraft(c.Request().Context(), rec.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// loadOwnedDraft resolves the :id param to a draft owned by the caller. On
// failure it has already written the response and returns it as the error.
func (s *Server) loadOwnedDraft(c echo.Context) (*db.DraftRecord, error) {
	userID, err := auth.UserID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid draft ID"})
	}

	rec, err := s.Store.GetDraft(c.Request().Context(), id)
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rec == nil {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Draft not found"})
	}
	if rec.OwnerID == nil || *rec.OwnerID != userID {
		return nil, c.JSON(http.StatusForbidden, map[string]string{"error": "Not your draft"})
	}
	return rec, nil
}

// runStage executes one wizard stage against an owned draft and persists the
// advanced state.
func (s *Server) runStage(c echo.Context, stage func(*proposal.Draft) error) error {
	rec, err := s.loadOwnedDraft(c)
	if err != nil {
		return err
	}

	draft := rec.Draft
	if err := stage(&draft); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	if err := s.Store.SaveDraft(c.Request().Context(), draft); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, draft)
}

func (s *Server) handleDraftAnalyze(c echo.Context) error {
	return s.runStage(c, func(d *proposal.Draft) error {
		return s.Pipeline.RunAnalysis(c.Request().Context(), d)
	})
}

func (s *Server) handleDraftResearch(c echo.Context) error {
	return s.runStage(c, func(d *proposal.Draft) error {
		return s.Pipeline.RunResearch(c.Request().Context(), d)
	})
}

func (s *Server) handleDraftStrategy(c echo.Context) error {
	var req struct {
		StrategyID string `json:"strategy_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	return s.runStage(c, func(d *proposal.Draft) error {
		return s.Pipeline.SelectStrategy(c.Request().Context(), d, req.StrategyID)
	})
}

func (s *Server) handleDraftMatch(c echo.Context) error {
	return s.runStage(c, func(d *proposal.Draft) error {
		return s.Pipeline.RunMatching(c.Request().Context(), d)
	})
}

func (s *Server) handleDraftFinalize(c echo.Context) error {
	return s.runStage(c, func(d *proposal.Draft) error {
		return s.Pipeline.Finalize(c.Request().Context(), d)
	})
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
