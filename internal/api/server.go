package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
	"github.com/oneboxhq/onebox/internal/imapsync"
	"github.com/oneboxhq/onebox/internal/registry"
)

// AccountManager is the subset of the connection manager the API layer
// drives.
type AccountManager interface {
	AddAccount(ctx context.Context, p imapsync.AccountParams) error
	Reconnect(ctx context.Context, email, password string) error
}

// Server exposes the account and search operations over HTTP.
type Server struct {
	manager  AccountManager
	registry *registry.AccountRegistry
	store    core.EmailStore
	logger   *zap.Logger
}

// NewServer creates a new API server
func NewServer(
	manager AccountManager,
	reg *registry.AccountRegistry,
	store core.EmailStore,
	logger *zap.Logger,
) *Server {
	return &Server{
		manager:  manager,
		registry: reg,
		store:    store,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	accounts := r.Group("/api/accounts")
	{
		accounts.POST("", s.addAccount)
		accounts.GET("", s.getAccounts)
		accounts.GET("/saved", s.getSavedAccounts)
		accounts.POST("/reconnect", s.reconnectAccount)
		accounts.GET("/search/category", s.searchByCategory)
	}

	return r
}

type addAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Secure   *bool  `json:"secure"`
}

func (s *Server) addAccount(c *gin.Context) {
	var req addAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" || req.Host == "" || req.Port == 0 || req.Secure == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	err := s.manager.AddAccount(c.Request.Context(), imapsync.AccountParams{
		Email:    req.Email,
		Password: req.Password,
		Host:     req.Host,
		Port:     req.Port,
		Secure:   *req.Secure,
	})
	if err != nil {
		if errors.Is(err, core.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
			return
		}
		s.logger.Error("Error adding account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Account started syncing " + req.Email})
}

func (s *Server) getAccounts(c *gin.Context) {
	accounts := s.registry.ListConnected()

	result := make([]core.AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		total, err := s.store.CountForAccount(c.Request.Context(), account.Email)
		if err != nil {
			s.logger.Warn("Failed to count emails for account",
				zap.String("email", account.Email), zap.Error(err))
			total = account.TotalEmails
		}
		account.TotalEmails = total
		result = append(result, account)
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getSavedAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "Saved account configurations",
		"accounts": s.registry.ListSavedConfigs(),
		"note":     "Passwords are not stored for security. Use POST /api/accounts/reconnect to restore connections.",
	})
}

type reconnectRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) reconnectAccount(c *gin.Context) {
	var req reconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	err := s.manager.Reconnect(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No saved configuration found for this email"})
			return
		}
		s.logger.Error("Error reconnecting account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconnect account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully reconnected " + req.Email,
		"email":   req.Email,
	})
}

func (s *Server) searchByCategory(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category query parameter is required"})
		return
	}

	emails, err := s.store.Search(c.Request.Context(), category, c.Query("account"), c.Query("folder"))
	if err != nil {
		s.logger.Error("Error searching emails by category", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search emails"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// HTTPServer wraps the router in an http.Server bound to addr. The
// caller owns starting and shutting it down.
func (s *Server) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}
