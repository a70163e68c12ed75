package mockapi

import (
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/rs/zerolog"
)

// DefaultPrefix matches the path prefix of the real backend.
const DefaultPrefix = "/api"

// Server is an in-memory stand-in for the resume intake backend.
type Server struct {
	mu           sync.Mutex
	users        map[string]*api.User // by identity key
	keysByID     map[string]string
	applications map[string]api.ApplicationStatus
	extraction   api.ExtractionResult
	now          func() time.Time
	logger       zerolog.Logger
}

// NewServer creates an empty backend.
func NewServer(logger zerolog.Logger) (s *Server) {
	s = &Server{
		users:        make(map[string]*api.User),
		keysByID:     make(map[string]string),
		applications: make(map[string]api.ApplicationStatus),
		extraction:   SampleExtraction(),
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	return s
}

// SampleExtraction is the parser output returned until SetExtraction is called.
func SampleExtraction() (result api.ExtractionResult) {
	result = api.ExtractionResult{
		Name:            "Sample Candidate",
		Email:           "sample@example.com",
		Phone:           "555-0100",
		University:      "State University",
		Major:           "Computer Science",
		GPA:             "3.7",
		ExtractedSkills: []string{"Go", "SQL", "Docker"},
		ExtractedWorkExperience: []api.ExtractedEntry{
			{Title: "Software Engineer, Acme", Dates: "2021 - present", Bullets: []string{"Built internal APIs", "Ran the on-call rotation"}},
		},
		ExtractedProjects: []api.ExtractedEntry{
			{Title: "resume-intake", Bullets: []string{"Command line client for the resume service"}},
		},
	}
	return result
}

// SetExtraction sets the payload returned by every resume upload.
func (s *Server) SetExtraction(extraction api.ExtractionResult) {
	s.mu.Lock()
	s.extraction = extraction
	s.mu.Unlock()
}

// User returns a stored profile by identity key.
func (s *Server) User(identityKey string) (user api.User, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[identityKey]
	if ok {
		user = *stored
	}
	return user, ok
}

// Router builds the gin engine serving every endpoint under prefix.
func (s *Server) Router(prefix string) (r *gin.Engine) {
	r = gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	g := r.Group(prefix)

	g.GET("/users/clerk/:key", s.getUser)
	g.POST("/users/clerk", s.createUser)
	g.PUT("/users/clerk/:key", s.updateUser)
	g.GET("/users/search/skills", s.searchBySkills)
	g.GET("/users/company/:company", s.byCompany)

	g.POST("/users/:id/projects", s.addProject)
	g.PUT("/users/:id/projects/:itemID", s.updateProject)
	g.DELETE("/users/:id/projects/:itemID", s.deleteProject)

	g.POST("/users/:id/work-experiences", s.addWorkExperience)
	g.PUT("/users/:id/work-experiences/:itemID", s.updateWorkExperience)
	g.DELETE("/users/:id/work-experiences/:itemID", s.deleteWorkExperience)

	g.POST("/resume/upload", s.uploadResume)
	g.GET("/resume/:key", s.getResume)

	g.POST("/application/automate", s.automate)
	g.GET("/application/status/:id", s.applicationStatus)

	return r
}

func (s *Server) requestLogger() (handler gin.HandlerFunc) {
	handler = func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("mock api")
	}
	return handler
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func (s *Server) getUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[c.Param("key")]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) createUser(c *gin.Context) {
	var req api.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.IdentityKey) == "" {
		fail(c, http.StatusBadRequest, "clerkUserId is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.IdentityKey]; exists {
		fail(c, http.StatusConflict, "User already exists")
		return
	}

	now := s.now()
	user := &api.User{
		ID:              uuid.NewString(),
		IdentityKey:     req.IdentityKey,
		Name:            req.Name,
		Email:           req.Email,
		Projects:        []api.Project{},
		WorkExperiences: []api.WorkExperience{},
		CreatedAt:       &now,
		UpdatedAt:       &now,
	}
	s.users[user.IdentityKey] = user
	s.keysByID[user.ID] = user.IdentityKey

	c.JSON(http.StatusCreated, user)
}

func (s *Server) updateUser(c *gin.Context) {
	var update api.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[c.Param("key")]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	setIf(&user.Name, update.Name)
	setIf(&user.Email, update.Email)
	setIf(&user.Phone, update.Phone)
	setIf(&user.University, update.University)
	setIf(&user.Major, update.Major)
	setIf(&user.LinkedinURL, update.LinkedinURL)
	setIf(&user.GithubURL, update.GithubURL)
	setIf(&user.WebsiteURL, update.WebsiteURL)
	if update.GPA != nil {
		gpa := *update.GPA
		user.GPA = &gpa
	}
	s.touch(user)

	c.JSON(http.StatusOK, user)
}

func (s *Server) searchBySkills(c *gin.Context) {
	wanted := make(map[string]bool)
	for _, skill := range strings.Split(c.Query("skills"), ",") {
		if skill = strings.ToLower(strings.TrimSpace(skill)); skill != "" {
			wanted[skill] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.filter(func(u *api.User) bool {
		for _, p := range u.Projects {
			if anyWanted(p.Skills, wanted) {
				return true
			}
		}
		for _, w := range u.WorkExperiences {
			if anyWanted(w.Skills, wanted) {
				return true
			}
		}
		return false
	})
	c.JSON(http.StatusOK, users)
}

func (s *Server) byCompany(c *gin.Context) {
	company := strings.ToLower(strings.TrimSpace(c.Param("company")))

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.filter(func(u *api.User) bool {
		for _, w := range u.WorkExperiences {
			if strings.ToLower(w.Company) == company {
				return true
			}
		}
		return false
	})
	c.JSON(http.StatusOK, users)
}

func (s *Server) addProject(c *gin.Context) {
	var input api.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.ProjectName) == "" {
		fail(c, http.StatusBadRequest, "projectName is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(c)
	if !ok {
		return
	}

	now := s.now()
	user.Projects = append(user.Projects, api.Project{
		ID:            uuid.NewString(),
		ProjectName:   input.ProjectName,
		Skills:        nonNil(input.Skills),
		SampleBullets: nonNil(input.SampleBullets),
		CreatedAt:     &now,
		UpdatedAt:     &now,
	})
	s.touch(user)

	c.JSON(http.StatusCreated, user)
}

func (s *Server) updateProject(c *gin.Context) {
	var input api.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(c)
	if !ok {
		return
	}

	for i := range user.Projects {
		p := &user.Projects[i]
		if p.ID != c.Param("itemID") {
			continue
		}
		if input.ProjectName != "" {
			p.ProjectName = input.ProjectName
		}
		if input.Skills != nil {
			p.Skills = input.Skills
		}
		if input.SampleBullets != nil {
			p.SampleBullets = input.SampleBullets
		}
		now := s.now()
		p.UpdatedAt = &now
		s.touch(user)
		c.JSON(http.StatusOK, user)
		return
	}

	fail(c, http.StatusNotFound, "Project not found")
}

func (s *Server) deleteProject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(c)
	if !ok {
		return
	}

	for i, p := range user.Projects {
		if p.ID == c.Param("itemID") {
			user.Projects = append(user.Projects[:i], user.Projects[i+1:]...)
			s.touch(user)
			c.JSON(http.StatusOK, user)
			return
		}
	}

	fail(c, http.StatusNotFound, "Project not found")
}

func (s *Server) addWorkExperience(c *gin.Context) {
	var input api.WorkExperienceInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Company) == "" {
		fail(c, http.StatusBadRequest, "company is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(c)
	if !ok {
		return
	}

	now := s.now()
	user.WorkExperiences = append(user.WorkExperiences, api.WorkExperience{
		ID:            uuid.NewString(),
		Company:       input.Company,
		Position:      input.Position,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Skills:        nonNil(input.Skills),
		SampleBullets: nonNil(input.SampleBullets),
		CreatedAt:     &now,
		UpdatedAt:     &now,
	})
	s.touch(user)

	c.JSON(http.StatusCreated, user)
}

func (s *Server) updateWorkExperience(c *gin.Context) {
	var input api.WorkExperienceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(c)
	if !ok {
		return
	}

	for i := range user.WorkExperiences {
		w := &user.WorkExperiences[i]
		if w.ID != c.Param("itemID") {
			continue
		}
		if input.Company != "" {
			w.Company = input.Company
		}
		w.Position = input.Position
		w.StartDate = input.StartDate
		w.EndDate = input.EndDate
		if input.Skills != nil {
			w.Skills = input.Skills
		}
		if input.SampleBullets != nil {
			w.SampleBullets = input.SampleBullets
		}
		now := s.now()
		w.UpdatedAt = &now
		s.touch(user)
		c.JSON(http.StatusOK, user)
		return
	}

	fail(c, http.StatusNotFound, "Work experience not found")
}

func (s *Server) deleteWorkExperience(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(c)
	if !ok {
		return
	}

	for i, w := range user.WorkExperiences {
		if w.ID == c.Param("itemID") {
			user.WorkExperiences = append(user.WorkExperiences[:i], user.WorkExperiences[i+1:]...)
			s.touch(user)
			c.JSON(http.StatusOK, user)
			return
		}
	}

	fail(c, http.StatusNotFound, "Work experience not found")
}

func (s *Server) uploadResume(c *gin.Context) {
	header, err := c.FormFile("resume")
	if err != nil {
		fail(c, http.StatusBadRequest, "No resume file uploaded")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		fail(c, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	key := c.PostForm("clerkUserId")

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[key]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	now := s.now()
	user.ResumePdf = &api.ResumePdf{
		Filename:     uuid.NewString() + ".pdf",
		OriginalName: header.Filename,
		UploadDate:   now.Format(time.RFC3339),
	}
	user.ParsedResumeData = &api.ParsedResumeData{
		ExtractedSkills:     nonNil(s.extraction.ExtractedSkills),
		ExtractedEducation:  []string{},
		ExtractedExperience: nonNil(s.extraction.ExtractedExperience),
	}
	s.touch(user)

	c.JSON(http.StatusOK, api.UploadResponse{
		Message:       "Resume uploaded successfully",
		ExtractedData: s.extraction,
	})
}

func (s *Server) getResume(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[c.Param("key")]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, api.ResumeData{
		ResumePdf:        user.ResumePdf,
		ParsedResumeData: user.ParsedResumeData,
	})
}

func (s *Server) automate(c *gin.Context) {
	var req api.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.JobURL) == "" {
		fail(c, http.StatusBadRequest, "jobUrl is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[req.IdentityKey]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	result := fillReport(user)
	status := api.ApplicationStatus{
		ApplicationID: uuid.NewString(),
		Status:        result.Status,
		Result:        result,
	}
	now := s.now()
	status.UpdatedAt = &now
	s.applications[status.ApplicationID] = status

	c.JSON(http.StatusOK, api.AutomationResponse{
		ApplicationID: status.ApplicationID,
		Result:        result,
	})
}

func (s *Server) applicationStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.applications[c.Param("id")]
	if !ok {
		fail(c, http.StatusNotFound, "Application not found")
		return
	}
	c.JSON(http.StatusOK, status)
}

// fillReport pretends to fill a standard application form from the profile.
func fillReport(user *api.User) (result api.AutomationResult) {
	result = api.AutomationResult{
		FilledFields: make([]api.FilledField, 0),
		Errors:       make([]string, 0),
	}

	fields := []struct {
		name  string
		value string
	}{
		{"name", user.Name},
		{"email", user.Email},
		{"phone", user.Phone},
		{"linkedin", user.LinkedinURL},
		{"github", user.GithubURL},
	}
	for _, f := range fields {
		if f.value == "" {
			result.FilledFields = append(result.FilledFields, api.FilledField{Field: f.name, Note: "not in profile, left blank"})
			continue
		}
		result.FilledFields = append(result.FilledFields, api.FilledField{Field: f.name, Value: f.value})
	}

	if user.ResumePdf == nil {
		result.Errors = append(result.Errors, "no resume on file to attach")
	}

	result.Status = "completed"
	if len(result.Errors) > 0 {
		result.Status = "partial"
	}
	return result
}

// userByID resolves the :id path parameter, writing a 404 when unknown. Caller holds s.mu.
func (s *Server) userByID(c *gin.Context) (user *api.User, ok bool) {
	key, ok := s.keysByID[c.Param("id")]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return user, ok
	}
	user = s.users[key]
	return user, ok
}

// filter returns matching users ordered by identity key. Caller holds s.mu.
func (s *Server) filter(match func(*api.User) bool) (users []api.User) {
	users = make([]api.User, 0)
	for _, u := range s.users {
		if match(u) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].IdentityKey < users[j].IdentityKey })
	return users
}

func (s *Server) touch(user *api.User) {
	now := s.now()
	user.UpdatedAt = &now
}

func setIf(field *string, value *string) {
	if value != nil {
		*field = *value
	}
}

func anyWanted(skills []string, wanted map[string]bool) (found bool) {
	for _, skill := range skills {
		if wanted[strings.ToLower(skill)] {
			found = true
			return found
		}
	}
	return found
}

func nonNil(values []string) (out []string) {
	out = values
	if out == nil {
		out = []string{}
	}
	return out
}
