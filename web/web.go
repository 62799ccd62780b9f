package web

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/oaksmc/ranktiers-bot/common"
	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/links"
	"github.com/oaksmc/ranktiers-bot/lookup"
	"github.com/oaksmc/ranktiers-bot/model"
	"github.com/oaksmc/ranktiers-bot/ranking"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server exposes the read side of the ledger as a JSON API. The leaderboard is
// served from a cache refreshed on a schedule; everything else reads live.
type Server struct {
	Logger  *zap.SugaredLogger
	Ranking *ranking.Aggregator
	Lookup  *lookup.Service
	DB      *gorm.DB

	mu     sync.RWMutex
	cached []ranking.PlayerSummary
}

func NewServer(aggregator *ranking.Aggregator, lookupSvc *lookup.Service, db *gorm.DB, logger *zap.SugaredLogger) *Server {
	return &Server{
		Logger:  logger,
		Ranking: aggregator,
		Lookup:  lookupSvc,
		DB:      db,
	}
}

func (srv *Server) Routes(r *gin.Engine) {
	r.GET("/api/leaderboard", srv.leaderboard)
	r.GET("/api/players/:username", srv.player)
	r.GET("/api/whois", srv.whois)
	r.GET("/api/search", srv.search)
}

// RefreshLeaderboard rebuilds the cached leaderboard. Run at startup and from
// the scheduler.
func (srv *Server) RefreshLeaderboard() {
	board, err := srv.Ranking.BuildLeaderboard(ranking.DefaultLimit)
	if err != nil {
		srv.Logger.Errorf("error refreshing leaderboard: %s", err)
		return
	}
	srv.mu.Lock()
	srv.cached = board
	srv.mu.Unlock()
}

func (srv *Server) leaderboard(c *gin.Context) {
	srv.mu.RLock()
	board := srv.cached
	srv.mu.RUnlock()

	if board == nil {
		var err error
		board, err = srv.Ranking.BuildLeaderboard(ranking.DefaultLimit)
		if err != nil {
			srv.Logger.Errorf("error building leaderboard: %s", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"players": board})
}

func (srv *Server) player(c *gin.Context) {
	username := c.Param("username")

	summary, err := srv.Lookup.Profile(username)
	if errors.Is(err, ledger.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		srv.Logger.Errorf("error loading player %s: %s", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error loading player"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":     summary.Username,
		"total_points": summary.TotalPoints,
		"kits":         summary.Kits,
		"avatar":       common.SkinHeadURL(summary.Username),
	})
}

func (srv *Server) whois(c *gin.Context) {
	username := c.Query("username")
	identityID := c.Query("user")

	res, err := srv.Lookup.Whois(username, identityID)
	if errors.Is(err, lookup.ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide a user or a username"})
		return
	}
	if errors.Is(err, links.ErrNotLinked) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no link found"})
		return
	}
	if err != nil {
		srv.Logger.Errorf("error resolving whois: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// search resolves a username case-insensitively to its canonical spelling.
func (srv *Server) search(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}

	var player model.Player
	err := srv.DB.Where("username LIKE ?", username).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		srv.Logger.Errorf("error searching for %s: %s", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": player.Username})
}
