// Package devserver is an in-memory implementation of the backend's HTTP
// contract. It backs `plotline devserver` and the end-to-end tests.
package devserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"plotline-cli/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookie   = "session"
	RequestIDHeader = "X-Request-Id"

	// DefaultTokenBalance is granted to every seeded user.
	DefaultTokenBalance = 100000
)

type account struct {
	user     model.User
	password string
	balance  int
	code     string
	referred bool
	autoRen  bool
	pkgID    int
}

type Server struct {
	logger *zap.Logger
	engine *gin.Engine
	now    func() time.Time

	mu        sync.Mutex
	accounts  map[int]*account
	sessions  map[string]int
	tokens    map[string]int
	projects  map[int]*model.Project
	outlines  map[int]*model.Outline
	versions  map[int][]model.Version
	files     map[string][]byte
	failures  map[string]string
	notice    string
	nextID    int
	requestID []string
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.Named("devserver")
		}
	}
}

// WithUser seeds an account.
func WithUser(username, password string) Option {
	return func(s *Server) { s.addAccount(username, password) }
}

func WithNotice(text string) Option {
	return func(s *Server) { s.notice = text }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(opts ...Option) *Server {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		logger:   zap.NewNop(),
		now:      time.Now,
		accounts: map[int]*account{},
		sessions: map[string]int{},
		tokens:   map[string]int{},
		projects: map[int]*model.Project{},
		outlines: map[int]*model.Outline{},
		versions: map[int][]model.Version{},
		files:    map[string][]byte{},
		failures: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// FailNext makes the next request matching route (for example
// "POST /api/outlines/:id") answer success:false with message.
func (s *Server) FailNext(route, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = message
}

// RequestIDs returns the request ids seen so far, oldest first.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestID...)
}

// Balance returns a user's remaining token balance.
func (s *Server) Balance(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accountByName(username); a != nil {
		return a.balance
	}
	return 0
}

// IssueToken returns a bearer token for username without a login round trip.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountByName(username)
	if a == nil {
		return ""
	}
	tok := newToken()
	s.tokens[tok] = a.user.ID
	return tok
}

// RevokeTokens invalidates every bearer token and session.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]int{}
	s.sessions = map[string]int{}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestIDMiddleware(), s.logMiddleware(), s.failureMiddleware())

	r.GET("/upload/:name", s.serveFile)

	api := r.Group("/api")
	api.GET("/status", s.getStatus)
	api.GET("/notice", s.getNotice)
	api.GET("/homepage", s.getHomePage)

	user := api.Group("/user")
	user.POST("/login", s.login)
	user.GET("/logout", s.logout)

	authed := api.Group("")
	authed.Use(s.authMiddleware())
	authed.GET("/user/self", s.self)
	authed.GET("/user/token", s.issueToken)
	authed.GET("/user/package", s.currentPackage)
	authed.GET("/user/referral-code", s.referralCode)
	authed.POST("/user/referral", s.useReferral)

	authed.GET("/projects", s.listProjects)
	authed.POST("/projects", s.createProject)
	authed.GET("/projects/:id", s.getProject)
	authed.PUT("/projects/:id", s.updateProject)
	authed.DELETE("/projects/:id", s.deleteProject)

	authed.GET("/outlines/:id", s.getOutline)
	authed.POST("/outlines/:id", s.saveOutline)
	authed.GET("/versions/:id", s.listVersions)
	authed.GET("/outlines/versions/:id", s.listVersions)
	authed.POST("/outline/parse/:id", s.parseOutline)
	authed.POST("/outlines/parse/:id", s.parseOutline)
	authed.POST("/exports/:id", s.exportOutline)

	authed.POST("/ai/generate/:id", s.generate)
	authed.GET("/ai/models", s.models)
	authed.POST("/ai/prompt", s.prompt)

	authed.GET("/package/all", s.packages)
	authed.GET("/package/:id", s.packageDetail)
	authed.POST("/packages/subscribe", s.subscribe)
	authed.POST("/package/subscribe", s.subscribe)
	authed.POST("/payment/create", s.subscribe)
	authed.POST("/package/cancel-renewal", s.cancelRenewal)
	return r
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		s.mu.Lock()
		s.requestID = append(s.requestID, id)
		s.mu.Unlock()
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) failureMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		msg, ok := s.failures[key]
		if ok {
			delete(s.failures, key)
		}
		s.mu.Unlock()
		if ok {
			fail(c, msg)
			c.Abort()
			return
		}
		c.Next()
	}
}

// authMiddleware accepts a bearer token or a login session cookie.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := s.authenticate(c)
		if !ok {
			failStatus(c, http.StatusUnauthorized, "unauthorized, please log in")
			c.Abort()
			return
		}
		c.Set("user_id", uid)
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		uid, ok := s.tokens[strings.TrimPrefix(h, "Bearer ")]
		return uid, ok
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		uid, ok := s.sessions[ck]
		return uid, ok
	}
	return 0, false
}

// current returns the caller's account. Caller holds s.mu.
func (s *Server) current(c *gin.Context) *account {
	return s.accounts[c.GetInt("user_id")]
}

func (s *Server) accountByName(name string) *account {
	for _, a := range s.accounts {
		if a.user.Username == name {
			return a
		}
	}
	return nil
}

func (s *Server) addAccount(username, password string) *account {
	s.nextID++
	a := &account{
		user:     model.User{ID: s.nextID, Username: username, DisplayName: username, Role: 1, Status: 1},
		password: password,
		balance:  DefaultTokenBalance,
		code:     strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		pkgID:    1,
	}
	s.accounts[a.user.ID] = a
	return a
}

func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "", "data": data})
}

func fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

func failStatus(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
