package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookshelf/internal/agenda"
	"bookshelf/internal/discussion"
	"bookshelf/internal/models"
	"bookshelf/internal/profile"
	"bookshelf/internal/recommend"
	"bookshelf/internal/storage"
)

const defaultRecentLimit = 20

// Services are the engines exposed over HTTP
type Services struct {
	Agenda      *agenda.Engine
	Discussions *discussion.Engine
	Recommender *recommend.Engine
	Profile     *profile.Profile
	Store       *storage.Persistent
}

// Server is the read-only JSON API
type Server struct {
	svc    Services
	logger *zap.Logger
}

func NewServer(svc Services, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.Register(r)
	return r
}

// Register adds the API routes to r
func (s *Server) Register(r gin.IRouter) {
	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/agenda", s.agendaSummary)
	api.GET("/agenda/:status", s.booksByStatus)
	api.GET("/goals", s.goals)
	api.GET("/stats", s.stats)
	api.GET("/discussions", s.discussions)
	api.GET("/discussions/statistics", s.discussionStatistics)
	api.GET("/discussions/:id", s.discussionRoom)
	api.GET("/recommendations", s.recommendations)
	api.GET("/profile", s.profile)
	api.GET("/storage/usage", s.storageUsage)
	api.GET("/export", s.export)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"storage":  s.svc.Store.IsAvailable(),
		"degraded": s.svc.Store.Degraded(),
	})
}

func (s *Server) agendaSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Agenda.GetAgendaSummary())
}

func (s *Server) booksByStatus(c *gin.Context) {
	status := models.Status(c.Param("status"))
	switch status {
	case models.StatusToRead, models.StatusReading, models.StatusFinished:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be toRead, reading or finished"})
		return
	}
	c.JSON(http.StatusOK, s.svc.Agenda.GetBooksByStatus(status))
}

// goals returns active goals; ?all=true includes completed and expired ones
func (s *Server) goals(c *gin.Context) {
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		c.JSON(http.StatusOK, s.svc.Agenda.GetGoals())
		return
	}
	c.JSON(http.StatusOK, s.svc.Agenda.GetActiveGoals())
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Agenda.GetStats())
}

// discussions searches when q is given and lists recent active rooms otherwise
func (s *Server) discussions(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		c.JSON(http.StatusOK, s.svc.Discussions.SearchDiscussions(q))
		return
	}
	limit := parseInt(c.Query("limit"), defaultRecentLimit)
	c.JSON(http.StatusOK, s.svc.Discussions.GetRecentDiscussions(limit))
}

func (s *Server) discussionStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Discussions.GetStatistics())
}

func (s *Server) discussionRoom(c *gin.Context) {
	room, ok := s.svc.Discussions.GetRoom(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) recommendations(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Recommender.GenerateRecommendations(c.Request.Context()))
}

func (s *Server) profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"preferences":   s.svc.Profile.Preferences(),
		"bookmarks":     s.svc.Profile.Bookmarks(),
		"searchHistory": s.svc.Profile.SearchHistory(),
	})
}

func (s *Server) storageUsage(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Store.UsageReport(c.Request.Context()))
}

func (s *Server) export(c *gin.Context) {
	data, err := s.svc.Agenda.ExportAgendaData()
	if err != nil {
		s.logger.Error("Failed to export agenda", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bookshelf-agenda.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(data))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
