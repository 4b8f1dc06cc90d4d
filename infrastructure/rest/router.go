// Package rest exposes accounts and chats over HTTP and mounts the websocket and metrics endpoints.
package rest

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"ws-chat/services"

	"github.com/gin-gonic/gin"
)

type Options struct {
	WebSocket    http.Handler
	Metrics      http.Handler
	StaticDir    string
	HistoryLimit int
}

type Server struct {
	log          *slog.Logger
	accounts     services.IAuthService
	chats        services.IChatService
	historyLimit int
}

// NewRouter builds the gin engine. Routes under /auth/me and /api require a bearer token,
// /ws/subscribe authenticates its own query token.
func NewRouter(log *slog.Logger, accounts services.IAuthService, chats services.IChatService, options Options) *gin.Engine {
	s := &Server{log: log, accounts: accounts, chats: chats, historyLimit: options.HistoryLimit}
	if s.historyLimit <= 0 {
		s.historyLimit = 50
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), CORS())

	requireUser := RequireUser(accounts)

	authGroup := router.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.GET("/me", requireUser, s.me)

	api := router.Group("/api", requireUser)
	api.GET("/users/list/all", s.listUsers)
	api.POST("/chat/create", s.createChat)
	api.GET("/chat/list/my", s.myChats)
	api.GET("/chat/list/all", s.allChats)
	api.GET("/chat/history/:chat_id", s.history)
	api.DELETE("/chat/leave/:chat_id", s.leave)

	if options.WebSocket != nil {
		router.GET("/ws/subscribe", gin.WrapH(options.WebSocket))
	}
	if options.Metrics != nil {
		router.GET("/metrics", gin.WrapH(options.Metrics))
	}
	if options.StaticDir != "" {
		router.NoRoute(staticFiles(options.StaticDir))
	}
	return router
}

// staticFiles serves the web client, falling back to index.html for unknown paths.
func staticFiles(dir string) gin.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
			return
		}
		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			c.File(filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
