package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"plotline-cli/internal/model"

	"github.com/gin-gonic/gin"
)

// AddProject seeds a project owned by username and returns it.
func (s *Server) AddProject(username string, in model.ProjectInput) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountByName(username)
	if a == nil {
		a = s.addAccount(username, "")
	}
	return *s.insertProject(a, in.Normalized())
}

// SetOutline seeds outline content for a project and records a version.
func (s *Server) SetOutline(projectID int, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendVersion(projectID, content)
}

func (s *Server) insertProject(a *account, in model.ProjectInput) *model.Project {
	now := model.At(s.now())
	p := &model.Project{
		ID:          s.id(),
		Title:       in.Title,
		Description: in.Description,
		Genre:       in.Genre,
		UserID:      a.user.ID,
		Username:    a.user.Username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects[p.ID] = p
	return p
}

// ownedProject resolves the :id param to a project owned by the caller. It
// writes the error response and returns nil on failure. Caller holds s.mu.
func (s *Server) ownedProject(c *gin.Context) *model.Project {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, "invalid project id")
		return nil
	}
	p := s.projects[id]
	if p == nil || p.UserID != c.GetInt("user_id") {
		failStatus(c, http.StatusNotFound, "project not found")
		return nil
	}
	return p
}

func (s *Server) listProjects(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := c.GetInt("user_id")
	out := []model.Project{}
	for _, p := range s.projects {
		if p.UserID == uid {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt.Time) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt.Time)
		}
		return out[i].ID > out[j].ID
	})
	ok(c, out)
}

func bindProject(c *gin.Context) (model.ProjectInput, bool) {
	var in model.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, "invalid parameters")
		return in, false
	}
	in = in.Normalized()
	if in.Title == "" {
		fail(c, "project title is required")
		return in, false
	}
	return in, true
}

func (s *Server) createProject(c *gin.Context) {
	in, valid := bindProject(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, *s.insertProject(s.current(c), in))
}

func (s *Server) getProject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.ownedProject(c); p != nil {
		ok(c, *p)
	}
}

func (s *Server) updateProject(c *gin.Context) {
	in, valid := bindProject(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	p.Title, p.Description, p.Genre = in.Title, in.Description, in.Genre
	p.UpdatedAt = model.At(s.now())
	ok(c, *p)
}

func (s *Server) deleteProject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	delete(s.projects, p.ID)
	delete(s.outlines, p.ID)
	delete(s.versions, p.ID)
	for name := range s.files {
		if strings.HasPrefix(name, "outline_"+strconv.Itoa(p.ID)+".") {
			delete(s.files, name)
		}
	}
	ok(c, nil)
}
