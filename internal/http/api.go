package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"telecom-chat/internal/agent"
	"telecom-chat/internal/auth"
	"telecom-chat/internal/domain"
	"telecom-chat/internal/inference"
	"telecom-chat/internal/service"
)

// Agent answers a natural-language query.
type Agent interface {
	Answer(ctx context.Context, query string) agent.Result
}

// ModelInfo describes the loaded model for the health endpoint.
type ModelInfo interface {
	Info() inference.Info
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	tokens  *auth.Issuer
	agent   Agent
	records service.RecordService
	model   ModelInfo
	logger  *logrus.Logger
}

func NewHandler(users service.UserService, tokens *auth.Issuer, agent Agent, records service.RecordService, model ModelInfo, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:   users,
		tokens:  tokens,
		agent:   agent,
		records: records,
		model:   model,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(requestIDMiddleware(), accessLogMiddleware(h.logger), corsMiddleware(allowedOrigins))

	router.POST("/token", h.login)
	router.GET("/health", h.health)

	authed := router.Group("/", h.authMiddleware())
	{
		authed.GET("/users/me", h.me)
		authed.POST("/query", h.query)
		authed.POST("/upload", h.upload)
		authed.GET("/files", h.listFiles)
	}
}

type tokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Disabled bool   `json:"disabled"`
}

type queryRequest struct {
	Query *string `json:"query"`
}

type UploadResponse struct {
	Filenames []string `json:"filenames"`
	Status    string   `json:"status"`
}

func (h *Handler) login(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			abortUnauthorized(c, "Incorrect username or password")
			return
		}
		h.internalError(c, err)
		return
	}

	token, _, err := h.tokens.Issue(user.Username)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, UserResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Disabled: user.Disabled,
	})
}

func (h *Handler) query(c *gin.Context) {
	query, ok := queryParam(c)
	if !ok {
		abortDetail(c, http.StatusUnprocessableEntity, "query is required")
		return
	}

	c.JSON(http.StatusOK, h.agent.Answer(c.Request.Context(), query))
}

// queryParam looks in the URL, then the form, then a JSON body. An empty
// value counts as present.
func queryParam(c *gin.Context) (string, bool) {
	if q, ok := c.GetQuery("query"); ok {
		return q, true
	}
	if q, ok := c.GetPostForm("query"); ok {
		return q, true
	}
	if c.ContentType() == gin.MIMEJSON {
		var req queryRequest
		if err := c.ShouldBindJSON(&req); err == nil && req.Query != nil {
			return *req.Query, true
		}
	}
	return "", false
}

// upload acknowledges the files by name. Contents are not stored.
func (h *Handler) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "files are required")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		abortDetail(c, http.StatusUnprocessableEntity, "files are required")
		return
	}

	names := make([]string, len(files))
	for i, fh := range files {
		names[i] = fh.Filename
	}
	h.logger.WithFields(logrus.Fields{
		"request_id": requestID(c),
		"user":       currentUser(c).Username,
		"files":      len(names),
	}).Info("upload received")

	c.JSON(http.StatusOK, UploadResponse{Filenames: names, Status: "Files received"})
}

func (h *Handler) listFiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"files": []domain.File{}})
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.model != nil {
		resp["model"] = h.model.Info()
	}
	if h.records != nil {
		counts, err := h.records.Counts(c.Request.Context())
		if err != nil {
			h.logger.WithError(err).WithField("request_id", requestID(c)).Warn("record store unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		resp["records"] = gin.H{
			"files":           counts.Files,
			"cdr_records":     counts.CDRRecords,
			"revenue_records": counts.RevenueRecords,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// internalError logs err and answers with a generic 500.
func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID(c),
		"path":       c.FullPath(),
	}).Error("request failed")
	abortDetail(c, http.StatusInternalServerError, "internal server error")
}

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	abortDetail(c, http.StatusUnauthorized, detail)
}
