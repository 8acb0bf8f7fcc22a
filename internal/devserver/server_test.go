package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tokenBox struct{ tok string }

func (b *tokenBox) Token() string { return b.tok }

func start(t *testing.T, opts ...Option) (*Server, *apiclient.Client, *tokenBox) {
	t.Helper()
	srv := New(append([]Option{WithUser("writer", "secret")}, opts...)...)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	box := &tokenBox{}
	c, err := apiclient.New(hs.URL, zap.NewNop(), apiclient.WithTokenSource(box))
	require.NoError(t, err)
	return srv, c, box
}

func loggedIn(t *testing.T, opts ...Option) (*Server, *apiclient.Client) {
	t.Helper()
	srv, c, box := start(t, opts...)
	ctx := context.Background()
	_, err := c.Login(ctx, "writer", "secret")
	require.NoError(t, err)
	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	box.tok = tok
	return srv, c
}

func TestLogin_CookieThenToken(t *testing.T) {
	_, c, box := start(t)
	ctx := context.Background()

	_, err := c.Login(ctx, "writer", "nope")
	require.Error(t, err)
	assert.Equal(t, "username or password is incorrect", apiclient.Message(err, ""))

	_, err = c.Self(ctx)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

	u, err := c.Login(ctx, "writer", "secret")
	require.NoError(t, err)
	assert.Equal(t, "writer", u.Username)

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	box.tok = tok

	self, err := c.Self(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, self.ID)
}

func TestRevokedTokenIs401(t *testing.T) {
	srv, c := loggedIn(t)
	srv.RevokeTokens()
	_, err := c.ListProjects(context.Background())
	var se *apiclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}

func TestProjects_CRUDIsScopedToOwner(t *testing.T) {
	srv, c := loggedIn(t)
	ctx := context.Background()
	other := srv.AddProject("someone-else", model.ProjectInput{Title: "Not yours"})

	_, err := c.CreateProject(ctx, model.ProjectInput{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, "project title is required", apiclient.Message(err, ""))

	p, err := c.CreateProject(ctx, model.ProjectInput{Title: " Dragon Road ", Genre: "fantasy"})
	require.NoError(t, err)
	assert.Equal(t, "Dragon Road", p.Title)
	assert.True(t, p.CreatedAt.IsSet())
	assert.False(t, p.LastEditedAt.IsSet())

	list, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = c.GetProject(ctx, other.ID)
	assert.True(t, apiclient.IsNotFound(err))

	up, err := c.UpdateProject(ctx, p.ID, model.ProjectInput{Title: "Dragon Road II"})
	require.NoError(t, err)
	assert.Equal(t, "Dragon Road II", up.Title)

	require.NoError(t, c.DeleteProject(ctx, p.ID))
	list, err = c.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOutline_SaveAppendsVersions(t *testing.T) {
	_, c := loggedIn(t)
	ctx := context.Background()
	p, err := c.CreateProject(ctx, model.ProjectInput{Title: "T"})
	require.NoError(t, err)

	o, err := c.GetOutline(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, o.ID)
	assert.Equal(t, "", o.Content)

	for _, s := range []string{"one", "two", "three"} {
		require.NoError(t, c.SaveOutline(ctx, p.ID, s))
	}
	err = c.SaveOutline(ctx, p.ID, " ")
	assert.Error(t, err)

	vs, err := c.Versions(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{vs[0].VersionNumber, vs[1].VersionNumber, vs[2].VersionNumber})
	assert.True(t, vs[0].CreatedAt.IsSet(), "unix created_at decodes")
	assert.Equal(t, "three", vs[0].Content)

	vs, err = c.Versions(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	got, err := c.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.LastEditedAt.IsSet())
}

func TestFailNext_SurfacesEnvelopeMessage(t *testing.T) {
	srv, c := loggedIn(t)
	ctx := context.Background()
	p, err := c.CreateProject(ctx, model.ProjectInput{Title: "T"})
	require.NoError(t, err)

	srv.FailNext("POST /api/outlines/:id", "quota exceeded")
	err = c.SaveOutline(ctx, p.ID, "text")
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", apiclient.Message(err, ""))

	require.NoError(t, c.SaveOutline(ctx, p.ID, "text"), "failure is one-shot")
}

func TestGenerate_DoesNotPersistAndChargesTokens(t *testing.T) {
	srv, c := loggedIn(t)
	ctx := context.Background()
	p, err := c.CreateProject(ctx, model.ProjectInput{Title: "T"})
	require.NoError(t, err)
	require.NoError(t, c.SaveOutline(ctx, p.ID, "The courier rode north."))

	before := srv.Balance("writer")
	res, err := c.Generate(ctx, p.ID, model.GenerationRequest{Content: "The courier rode north.", Style: model.StyleFantasy, WordLimit: 500})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Old magic")
	require.NotNil(t, res.TokenBalance)
	assert.Equal(t, before-res.TokensUsed, *res.TokenBalance)

	vs, err := c.Versions(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, vs, 1)

	_, err = c.Generate(ctx, p.ID, model.GenerationRequest{Content: "x", WordLimit: 50})
	assert.Error(t, err)
}

func TestParseAndExportRoundTrip(t *testing.T) {
	_, c := loggedIn(t)
	ctx := context.Background()
	p, err := c.CreateProject(ctx, model.ProjectInput{Title: "Atlas"})
	require.NoError(t, err)

	parsed, err := c.ParseOutlineFile(ctx, p.ID, "plan.txt", strings.NewReader("  line one\nline two \n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", parsed.Content)

	_, err = c.ParseOutlineFile(ctx, p.ID, "plan.pdf", strings.NewReader("x"), nil)
	assert.Error(t, err)

	_, err = c.Export(ctx, p.ID, "txt")
	assert.Error(t, err, "nothing saved yet")

	require.NoError(t, c.SaveOutline(ctx, p.ID, "line one\nline two"))
	res, err := c.Export(ctx, p.ID, "docx")
	require.NoError(t, err)
	var buf bytes.Buffer
	n, err := c.Download(ctx, res.FileURL, &buf)
	require.NoError(t, err)
	assert.Equal(t, res.FileSize, n)

	parsed, err = c.ParseOutlineFile(ctx, p.ID, "back.docx", bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, "Atlas\n\nline one\nline two", parsed.Content)
}

func TestSiteEndpoints(t *testing.T) {
	_, c, _ := start(t, WithNotice("maintenance at noon"))
	ctx := context.Background()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Plotline Dev", st.SystemName)

	n, err := c.Notice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "maintenance at noon", n)

	raw, err := c.HomePageRaw(ctx)
	require.NoError(t, err)
	var hp model.HomePage
	require.NoError(t, json.Unmarshal([]byte(raw), &hp))
	assert.Equal(t, model.DefaultHomePage().Title, hp.Title)
}

func TestPackagesAndReferral(t *testing.T) {
	srv, c := loggedIn(t)
	ctx := context.Background()

	pkgs, err := c.Packages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 3)

	one, err := c.PackageByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Writer", one.Name)
	_, err = c.PackageByID(ctx, 42)
	assert.True(t, apiclient.IsNotFound(err))

	order, err := c.Subscribe(ctx, model.SubscribeRequest{PackageID: 2, PaymentMethod: model.PaymentAlipay})
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderID)
	assert.Contains(t, order.PaymentURL, "alipay")

	cur, err := c.CurrentPackage(ctx)
	require.NoError(t, err)
	assert.True(t, cur.AutoRenew)
	require.NoError(t, c.CancelRenewal(ctx))
	assert.Error(t, c.CancelRenewal(ctx))

	code, err := c.ReferralCode(ctx)
	require.NoError(t, err)
	_, err = c.UseReferral(ctx, code.ReferralCode)
	assert.Equal(t, "cannot use your own referral code", apiclient.Message(err, ""))

	srv.AddProject("friend", model.ProjectInput{Title: "x"})
	friendTok := srv.IssueToken("friend")
	friend, err := apiclient.New(c.BaseURL(), zap.NewNop(), apiclient.WithTokenSource(&tokenBox{tok: friendTok}))
	require.NoError(t, err)
	reward, err := friend.UseReferral(ctx, code.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, referralReward, reward.TokensRewarded)
	assert.Equal(t, DefaultTokenBalance+referralReward, srv.Balance("writer"))
}

func TestRequestIDEchoed(t *testing.T) {
	srv := New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(RequestIDHeader, "abc")
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, []string{"abc"}, srv.RequestIDs())
}
