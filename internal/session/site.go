package session

import (
	"context"
	"encoding/json"
	"strings"

	"plotline-cli/internal/model"

	"go.uber.org/zap"
)

// RefreshStatus fetches /api/status and caches it with its derived keys.
func (s *Session) RefreshStatus(ctx context.Context, api API) (model.Status, error) {
	st, err := api.Status(ctx)
	if err != nil {
		return model.Status{}, err
	}
	b, err := json.Marshal(st)
	if err != nil {
		return model.Status{}, err
	}
	if err := s.kv.SetMany(ctx, map[string]string{
		KeyStatus:       string(b),
		KeySystemName:   st.SystemName,
		KeyFooterHTML:   st.FooterHTML,
		KeyHomePageLink: st.HomePageLink,
	}); err != nil {
		return model.Status{}, err
	}
	return st, nil
}

// CachedStatus returns the last persisted status, if any.
func (s *Session) CachedStatus(ctx context.Context) (model.Status, bool) {
	raw, ok, err := s.kv.Get(ctx, KeyStatus)
	if err != nil || !ok {
		return model.Status{}, false
	}
	var st model.Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return model.Status{}, false
	}
	return st, true
}

// SystemName is the cached site name, or "Plotline".
func (s *Session) SystemName(ctx context.Context) string {
	if v, ok, err := s.kv.Get(ctx, KeySystemName); err == nil && ok && strings.TrimSpace(v) != "" {
		return v
	}
	return "Plotline"
}

// RefreshNotice fetches the notice banner and caches it.
func (s *Session) RefreshNotice(ctx context.Context, api API) (string, error) {
	n, err := api.Notice(ctx)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, KeyNotice, n); err != nil {
		return "", err
	}
	return n, nil
}

func (s *Session) CachedNotice(ctx context.Context) string {
	v, _, _ := s.kv.Get(ctx, KeyNotice)
	return v
}

// HomePage returns the server's page config, or the built-in default when it
// is absent, unreachable or not valid JSON.
func (s *Session) HomePage(ctx context.Context, api API) model.HomePage {
	raw, err := api.HomePageRaw(ctx)
	if err != nil {
		s.logger.Debug("homepage unavailable, using default", zap.Error(err))
		return model.DefaultHomePage()
	}
	if strings.TrimSpace(raw) == "" {
		return model.DefaultHomePage()
	}
	var hp model.HomePage
	if err := json.Unmarshal([]byte(raw), &hp); err != nil || strings.TrimSpace(hp.Title) == "" {
		return model.DefaultHomePage()
	}
	return hp
}
