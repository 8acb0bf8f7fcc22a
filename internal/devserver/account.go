package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"plotline-cli/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var catalog = []model.Package{
	{ID: 1, Name: "Free", Description: "Try the assistant", Price: 0, MonthlyTokens: 100000, Duration: 30, Features: []string{"AI continuation", "Version history"}},
	{ID: 2, Name: "Writer", Description: "For regular drafting", Price: 29.9, MonthlyTokens: 1000000, Duration: 30, Features: []string{"AI continuation", "Version history", "Export"}},
	{ID: 3, Name: "Studio", Description: "Heavy use", Price: 99, MonthlyTokens: 5000000, Duration: 30, Features: []string{"Everything in Writer", "Priority queue"}},
}

func packageByID(id int) (model.Package, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return model.Package{}, false
}

func (s *Server) getStatus(c *gin.Context) {
	ok(c, model.Status{SystemName: "Plotline Dev", Version: "dev", FooterHTML: "<p>in-memory backend</p>"})
}

func (s *Server) getNotice(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, s.notice)
}

// getHomePage serves the page config as a JSON-encoded string, as the real
// backend stores it.
func (s *Server) getHomePage(c *gin.Context) {
	b, _ := json.Marshal(model.DefaultHomePage())
	ok(c, string(b))
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid parameters")
		return
	}
	s.mu.Lock()
	a := s.accountByName(strings.TrimSpace(req.Username))
	if a == nil || a.password != req.Password {
		s.mu.Unlock()
		fail(c, "username or password is incorrect")
		return
	}
	sid := uuid.NewString()
	s.sessions[sid] = a.user.ID
	user := a.user
	s.mu.Unlock()

	c.SetCookie(SessionCookie, sid, 3600, "/", "", false, true)
	ok(c, user)
}

func (s *Server) logout(c *gin.Context) {
	if ck, err := c.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, ck)
		s.mu.Unlock()
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		s.mu.Lock()
		delete(s.tokens, strings.TrimPrefix(h, "Bearer "))
		s.mu.Unlock()
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	ok(c, nil)
}

func (s *Server) self(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, s.current(c).user)
}

// issueToken mints a fresh bearer token; earlier ones stay valid.
func (s *Server) issueToken(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := newToken()
	s.tokens[tok] = s.current(c).user.ID
	ok(c, tok)
}

func (s *Server) currentPackage(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.current(c)
	pkg, _ := packageByID(a.pkgID)
	start := model.At(s.now().AddDate(0, 0, -1))
	ok(c, model.CurrentPackage{
		Package:            pkg,
		SubscriptionStatus: "active",
		StartDate:          start,
		ExpiryDate:         model.At(start.AddDate(0, 0, pkg.Duration)),
		AutoRenew:          a.autoRen,
	})
}

func (s *Server) packages(c *gin.Context) {
	ok(c, gin.H{"packages": catalog})
}

func (s *Server) packageDetail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, "invalid package id")
		return
	}
	pkg, found := packageByID(id)
	if !found {
		failStatus(c, http.StatusNotFound, "package not found")
		return
	}
	ok(c, pkg)
}

func (s *Server) subscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid parameters")
		return
	}
	if !model.ValidPaymentMethod(string(req.PaymentMethod)) {
		fail(c, "unsupported payment method")
		return
	}
	pkg, found := packageByID(req.PackageID)
	if !found {
		failStatus(c, http.StatusNotFound, "package not found")
		return
	}
	s.mu.Lock()
	a := s.current(c)
	a.autoRen = true
	if pkg.Price == 0 {
		a.pkgID = pkg.ID
	}
	s.mu.Unlock()
	orderID := uuid.NewString()
	ok(c, model.PaymentOrder{
		OrderID:    orderID,
		PaymentURL: "https://pay.example.invalid/" + string(req.PaymentMethod) + "/" + orderID,
	})
}

func (s *Server) cancelRenewal(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.current(c)
	if !a.autoRen {
		fail(c, "auto renewal is not enabled")
		return
	}
	a.autoRen = false
	ok(c, nil)
}

func (s *Server) referralCode(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.current(c)
	n := 0
	for _, other := range s.accounts {
		if other.referred && other != a {
			n++
		}
	}
	ok(c, model.ReferralCode{ReferralCode: a.code, TotalReferred: n, TotalTokensEarned: n * referralReward})
}

const referralReward = 10000

func (s *Server) useReferral(c *gin.Context) {
	var req struct {
		ReferralCode string `json:"referralCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ReferralCode) == "" {
		fail(c, "referral code is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.current(c)
	switch {
	case strings.EqualFold(req.ReferralCode, a.code):
		fail(c, "cannot use your own referral code")
		return
	case a.referred:
		fail(c, "a referral code has already been used")
		return
	}
	var owner *account
	for _, other := range s.accounts {
		if strings.EqualFold(other.code, req.ReferralCode) {
			owner = other
		}
	}
	if owner == nil {
		fail(c, "referral code does not exist")
		return
	}
	a.referred = true
	a.balance += referralReward
	owner.balance += referralReward
	ok(c, model.ReferralReward{TokensRewarded: referralReward, NewBalance: a.balance})
}

func (s *Server) models(c *gin.Context) {
	ok(c, []model.AIModel{
		{ID: "qwen-turbo", OwnedBy: "dashscope"},
		{ID: "qwen-plus", OwnedBy: "dashscope"},
		{ID: "qwen-max", OwnedBy: "dashscope"},
	})
}

func (s *Server) prompt(c *gin.Context) {
	var req model.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserPrompt) == "" {
		fail(c, "prompt is required")
		return
	}
	out := "Echo: " + strings.TrimSpace(req.UserPrompt)
	used := len([]rune(out))
	s.mu.Lock()
	s.current(c).balance -= used
	s.mu.Unlock()
	ok(c, model.PromptResult{Content: out, TokensUsed: used, Model: req.Model})
}
