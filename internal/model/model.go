package model

import "strings"

type Project struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Genre        string    `json:"genre,omitempty"`
	UserID       int       `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at,omitempty"`
	LastEditedAt Timestamp `json:"last_edited_at,omitempty"`
}

// ProjectInput is the writable subset of a Project.
type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

// Normalized trims every field.
func (in ProjectInput) Normalized() ProjectInput {
	return ProjectInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Genre:       strings.TrimSpace(in.Genre),
	}
}

// Outline is addressed by project id; there is at most one per project.
type Outline struct {
	ID             int       `json:"id,omitempty"`
	ProjectID      int       `json:"project_id"`
	Content        string    `json:"content"`
	CurrentVersion int       `json:"current_version,omitempty"`
	CreatedAt      Timestamp `json:"created_at,omitempty"`
	UpdatedAt      Timestamp `json:"updated_at,omitempty"`
}

// Version is an immutable full-content snapshot taken at save time.
type Version struct {
	ID            int       `json:"id"`
	OutlineID     int       `json:"outline_id,omitempty"`
	VersionNumber int       `json:"version_number"`
	Content       string    `json:"content"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	AIStyle       string    `json:"ai_style,omitempty"`
	WordLimit     int       `json:"word_limit,omitempty"`
	TokensUsed    int       `json:"tokens_used,omitempty"`
	CreatedAt     Timestamp `json:"created_at"`
}

type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        int    `json:"role,omitempty"`
	Status      int    `json:"status,omitempty"`
}

// Label is the name shown in headers.
func (u User) Label() string {
	if s := strings.TrimSpace(u.DisplayName); s != "" {
		return s
	}
	return u.Username
}

type Status struct {
	SystemName      string `json:"system_name"`
	FooterHTML      string `json:"footer_html,omitempty"`
	HomePageLink    string `json:"home_page_link,omitempty"`
	Version         string `json:"version,omitempty"`
	UseExternalHome bool   `json:"use_external_home,omitempty"`
}

type HomeFeature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// HomePage is the JSON page config served by /api/homepage.
type HomePage struct {
	Title           string        `json:"title"`
	Subtitle        string        `json:"subtitle,omitempty"`
	Description     string        `json:"description,omitempty"`
	BackgroundImage string        `json:"backgroundImage,omitempty"`
	Features        []HomeFeature `json:"features,omitempty"`
}

func DefaultHomePage() HomePage {
	return HomePage{
		Title:       "AI outline continuation",
		Subtitle:    "Keep the story moving",
		Description: "Draft, version and extend novel outlines with AI assistance.",
		Features: []HomeFeature{
			{Title: "Continuation", Description: "Extend the outline from what is already written", Icon: "magic"},
			{Title: "Styles", Description: "Fantasy, sci-fi, urban, xianxia and historical voices", Icon: "paint brush"},
			{Title: "Versions", Description: "Every save is a snapshot you can return to", Icon: "history"},
			{Title: "Export", Description: "Download the outline as txt, docx or pdf", Icon: "file alternate"},
		},
	}
}

type AIModel struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

type PromptRequest struct {
	SystemPrompt string  `json:"system_prompt,omitempty"`
	UserPrompt   string  `json:"user_prompt"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

type PromptResult struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model,omitempty"`
}

type Package struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Price         float64  `json:"price"`
	MonthlyTokens int      `json:"monthly_tokens"`
	Duration      int      `json:"duration"`
	Features      []string `json:"features,omitempty"`
}

type Subscription struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id,omitempty"`
	PackageID int       `json:"package_id"`
	Status    string    `json:"status,omitempty"`
	StartDate Timestamp `json:"start_date,omitempty"`
	EndDate   Timestamp `json:"end_date,omitempty"`
	AutoRenew bool      `json:"auto_renew"`
}

type CurrentPackage struct {
	Package            Package       `json:"package"`
	Subscription       *Subscription `json:"subscription,omitempty"`
	SubscriptionStatus string        `json:"subscription_status,omitempty"`
	StartDate          Timestamp     `json:"start_date,omitempty"`
	ExpiryDate         Timestamp     `json:"expiry_date,omitempty"`
	AutoRenew          bool          `json:"auto_renew"`
}

type PaymentMethod string

const (
	PaymentAlipay PaymentMethod = "alipay"
	PaymentWechat PaymentMethod = "wechat"
)

func ValidPaymentMethod(m string) bool {
	switch PaymentMethod(m) {
	case PaymentAlipay, PaymentWechat:
		return true
	default:
		return false
	}
}

type SubscribeRequest struct {
	PackageID     int           `json:"package_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

type PaymentOrder struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

type ReferralCode struct {
	ReferralCode      string `json:"referral_code"`
	TotalReferred     int    `json:"total_referred"`
	TotalTokensEarned int    `json:"total_tokens_earned"`
	ShareURL          string `json:"share_url,omitempty"`
}

type ReferralReward struct {
	TokensRewarded int `json:"tokens_rewarded"`
	NewBalance     int `json:"new_balance"`
}

// ParsedFile is the server's plain-text rendering of an uploaded outline file.
type ParsedFile struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type ExportResult struct {
	FileURL  string `json:"file_url"`
	FileSize int64  `json:"file_size,omitempty"`
}
