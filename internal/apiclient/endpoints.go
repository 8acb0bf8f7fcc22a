package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"plotline-cli/internal/model"
)

func projectPath(prefix string, id int) string {
	return prefix + "/" + strconv.Itoa(id)
}

// Status returns the public site status/config.
func (c *Client) Status(ctx context.Context) (model.Status, error) {
	return Decode[model.Status](c.Get(ctx, "/api/status"))
}

// Notice returns the notice banner text (may be empty).
func (c *Client) Notice(ctx context.Context) (string, error) {
	return Decode[string](c.Get(ctx, "/api/notice"))
}

// HomePageRaw returns the homepage config exactly as served: a JSON-encoded string.
func (c *Client) HomePageRaw(ctx context.Context) (string, error) {
	env, err := c.Get(ctx, "/api/homepage")
	if err != nil {
		return "", err
	}
	if err := env.Err(); err != nil {
		return "", err
	}
	if !env.HasData() {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(env.Data, &s); err != nil {
		// Some deployments return the object unencoded.
		return string(env.Data), nil
	}
	return s, nil
}

func (c *Client) Models(ctx context.Context) ([]model.AIModel, error) {
	return Decode[[]model.AIModel](c.Get(ctx, "/api/ai/models"))
}

func (c *Client) Prompt(ctx context.Context, req model.PromptRequest) (model.PromptResult, error) {
	return Decode[model.PromptResult](c.Post(ctx, "/api/ai/prompt", req))
}

// Login starts a cookie session; follow with AccessToken to obtain a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (model.User, error) {
	body := map[string]string{"username": username, "password": password}
	return Decode[model.User](c.Post(ctx, "/api/user/login", body))
}

// AccessToken issues a bearer token for the logged-in cookie session.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	return Decode[string](c.Get(ctx, "/api/user/token"))
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := Decode[json.RawMessage](c.Get(ctx, "/api/user/logout"))
	return err
}

func (c *Client) Self(ctx context.Context) (model.User, error) {
	return Decode[model.User](c.Get(ctx, "/api/user/self"))
}

// SelfWithToken asks who owns token without touching the current session:
// the bearer is token, and a 401 does not run the unauthorized hook.
func (c *Client) SelfWithToken(ctx context.Context, token string) (model.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/user/self", nil)
	if err != nil {
		return model.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	return Decode[model.User](c.send(req, false))
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	return Decode[[]model.Project](c.Get(ctx, "/api/projects"))
}

func (c *Client) GetProject(ctx context.Context, id int) (model.Project, error) {
	return Decode[model.Project](c.Get(ctx, projectPath("/api/projects", id)))
}

func (c *Client) CreateProject(ctx context.Context, in model.ProjectInput) (model.Project, error) {
	return Decode[model.Project](c.Post(ctx, "/api/projects", in))
}

func (c *Client) UpdateProject(ctx context.Context, id int, in model.ProjectInput) (model.Project, error) {
	return Decode[model.Project](c.Put(ctx, projectPath("/api/projects", id), in))
}

func (c *Client) DeleteProject(ctx context.Context, id int) error {
	_, err := Decode[json.RawMessage](c.Delete(ctx, projectPath("/api/projects", id)))
	return err
}

func (c *Client) GetOutline(ctx context.Context, projectID int) (model.Outline, error) {
	return Decode[model.Outline](c.Get(ctx, projectPath("/api/outlines", projectID)))
}

// SaveOutline persists content; the server appends a new version.
func (c *Client) SaveOutline(ctx context.Context, projectID int, content string) error {
	body := map[string]string{"content": content}
	_, err := Decode[json.RawMessage](c.Post(ctx, projectPath("/api/outlines", projectID), body))
	return err
}

// Versions lists version history. limit <= 0 uses the server default.
func (c *Client) Versions(ctx context.Context, projectID, limit int) ([]model.Version, error) {
	p := projectPath("/api/versions", projectID)
	if limit > 0 {
		p += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	return Decode[[]model.Version](c.Get(ctx, p))
}

func (c *Client) Generate(ctx context.Context, projectID int, req model.GenerationRequest) (model.GenerationResult, error) {
	return Decode[model.GenerationResult](c.Post(ctx, projectPath("/api/ai/generate", projectID), req))
}

// ParseOutlineFile uploads a .txt/.docx file and returns its text.
func (c *Client) ParseOutlineFile(ctx context.Context, projectID int, filename string, r io.Reader, progress ProgressFunc) (model.ParsedFile, error) {
	return Decode[model.ParsedFile](c.Upload(ctx, projectPath("/api/outline/parse", projectID), "file", filename, r, progress))
}

func (c *Client) Export(ctx context.Context, projectID int, format string) (model.ExportResult, error) {
	body := map[string]string{"format": format}
	return Decode[model.ExportResult](c.Post(ctx, projectPath("/api/exports", projectID), body))
}

func (c *Client) Packages(ctx context.Context) ([]model.Package, error) {
	out, err := Decode[struct {
		Packages []model.Package `json:"packages"`
	}](c.Get(ctx, "/api/package/all"))
	return out.Packages, err
}

func (c *Client) PackageByID(ctx context.Context, id int) (model.Package, error) {
	return Decode[model.Package](c.Get(ctx, "/api/package/"+strconv.Itoa(id)))
}

func (c *Client) CurrentPackage(ctx context.Context) (model.CurrentPackage, error) {
	return Decode[model.CurrentPackage](c.Get(ctx, "/api/user/package"))
}

func (c *Client) Subscribe(ctx context.Context, req model.SubscribeRequest) (model.PaymentOrder, error) {
	if !model.ValidPaymentMethod(string(req.PaymentMethod)) {
		return model.PaymentOrder{}, fmt.Errorf("unsupported payment method: %s", req.PaymentMethod)
	}
	return Decode[model.PaymentOrder](c.Post(ctx, "/api/packages/subscribe", req))
}

func (c *Client) CreatePayment(ctx context.Context, req model.SubscribeRequest) (model.PaymentOrder, error) {
	if !model.ValidPaymentMethod(string(req.PaymentMethod)) {
		return model.PaymentOrder{}, fmt.Errorf("unsupported payment method: %s", req.PaymentMethod)
	}
	return Decode[model.PaymentOrder](c.Post(ctx, "/api/payment/create", req))
}

func (c *Client) CancelRenewal(ctx context.Context) error {
	_, err := Decode[json.RawMessage](c.Post(ctx, "/api/package/cancel-renewal", nil))
	return err
}

func (c *Client) ReferralCode(ctx context.Context) (model.ReferralCode, error) {
	return Decode[model.ReferralCode](c.Get(ctx, "/api/user/referral-code"))
}

func (c *Client) UseReferral(ctx context.Context, code string) (model.ReferralReward, error) {
	body := map[string]string{"referralCode": code}
	return Decode[model.ReferralReward](c.Post(ctx, "/api/user/referral", body))
}
