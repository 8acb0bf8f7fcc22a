package devserver

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"plotline-cli/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	defaultVersionLimit = 10
	maxUploadBytes      = 10 << 20
)

// appendVersion stores content as the outline and records the next version.
// Caller holds s.mu.
func (s *Server) appendVersion(projectID int, content string) model.Version {
	now := model.At(s.now())
	o := s.outlines[projectID]
	if o == nil {
		o = &model.Outline{ID: s.id(), ProjectID: projectID, CreatedAt: now}
		s.outlines[projectID] = o
	}
	o.Content = content
	o.UpdatedAt = now
	o.CurrentVersion++

	v := model.Version{
		ID:            s.id(),
		OutlineID:     o.ID,
		VersionNumber: o.CurrentVersion,
		Content:       content,
		CreatedAt:     now,
	}
	s.versions[projectID] = append(s.versions[projectID], v)
	if p := s.projects[projectID]; p != nil {
		p.LastEditedAt = now
		p.UpdatedAt = now
	}
	return v
}

// getOutline answers an empty outline (id 0) when none was saved yet.
func (s *Server) getOutline(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	if o := s.outlines[p.ID]; o != nil {
		ok(c, *o)
		return
	}
	ok(c, model.Outline{ProjectID: p.ID})
}

func (s *Server) saveOutline(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid parameters")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(c, "outline content must not be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	s.appendVersion(p.ID, req.Content)
	ok(c, nil)
}

// versionJSON renders created_at as unix seconds, like the production backend.
func versionJSON(v model.Version) gin.H {
	return gin.H{
		"id":              v.ID,
		"outline_id":      v.OutlineID,
		"version_number":  v.VersionNumber,
		"content":         v.Content,
		"is_ai_generated": v.IsAIGenerated,
		"created_at":      v.CreatedAt.Unix(),
	}
}

func (s *Server) listVersions(c *gin.Context) {
	limit := defaultVersionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, "invalid limit")
			return
		}
		limit = n
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	vs := append([]model.Version(nil), s.versions[p.ID]...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].VersionNumber > vs[j].VersionNumber })
	if len(vs) > limit {
		vs = vs[:limit]
	}
	out := make([]gin.H, 0, len(vs))
	for _, v := range vs {
		out = append(out, versionJSON(v))
	}
	ok(c, out)
}

func (s *Server) parseOutline(c *gin.Context) {
	s.mu.Lock()
	p := s.ownedProject(c)
	s.mu.Unlock()
	if p == nil {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, "no file uploaded")
		return
	}
	if fh.Size > maxUploadBytes {
		fail(c, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, "failed to read file")
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		fail(c, "failed to read file")
		return
	}

	var content string
	switch strings.ToLower(path.Ext(fh.Filename)) {
	case ".txt":
		content = string(raw)
	case ".docx":
		content, err = docxText(raw)
		if err != nil {
			fail(c, "failed to parse docx: "+err.Error())
			return
		}
	default:
		fail(c, "only .txt and .docx files are supported")
		return
	}
	ok(c, model.ParsedFile{Content: strings.TrimSpace(content), Filename: fh.Filename, Size: fh.Size})
}

func (s *Server) exportOutline(c *gin.Context) {
	var req struct {
		Format string `json:"format"`
	}
	_ = c.ShouldBindJSON(&req)
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "txt"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	o := s.outlines[p.ID]
	if o == nil || strings.TrimSpace(o.Content) == "" {
		fail(c, "outline is empty; save it before exporting")
		return
	}
	var body []byte
	switch format {
	case "txt":
		body = []byte(p.Title + "\n\n" + o.Content + "\n")
	case "docx":
		b, err := docxBytes(p.Title, o.Content)
		if err != nil {
			failStatus(c, http.StatusInternalServerError, "failed to render docx")
			return
		}
		body = b
	default:
		fail(c, fmt.Sprintf("export format %s is not supported", format))
		return
	}
	name := fmt.Sprintf("outline_%d.%s", p.ID, format)
	s.files[name] = body
	ok(c, model.ExportResult{FileURL: "/upload/" + name, FileSize: int64(len(body))})
}

func (s *Server) serveFile(c *gin.Context) {
	s.mu.Lock()
	body, found := s.files[c.Param("name")]
	s.mu.Unlock()
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	ct := "text/plain; charset=utf-8"
	if strings.HasSuffix(c.Param("name"), ".docx") {
		ct = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	c.Data(http.StatusOK, ct, body)
}
