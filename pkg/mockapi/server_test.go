package mockapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/identity"
	"github.com/nikogura/resume-intake/pkg/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*Server, *api.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := NewServer(zerolog.Nop())
	server := httptest.NewServer(backend.Router(DefaultPrefix))
	t.Cleanup(server.Close)

	return backend, api.NewClient(server.URL + DefaultPrefix)
}

func TestUnknownUserIsNotFound(t *testing.T) {
	_, client := setupTestServer(t)

	_, err := client.GetUserByIdentity(context.Background(), "u9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNotFound))
	assert.False(t, errors.Is(err, api.ErrRemoteFailure))
	assert.Equal(t, "User not found", err.Error())
}

func TestCreateUserConflict(t *testing.T) {
	_, client := setupTestServer(t)
	ctx := context.Background()

	created, err := client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k1", Name: "Jane"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotNil(t, created.CreatedAt)

	_, err = client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrRemoteFailure))
}

func TestReconcilerEndToEnd(t *testing.T) {
	backend, client := setupTestServer(t)
	ctx := context.Background()

	backend.SetExtraction(api.ExtractionResult{
		Name:            "Parsed Name",
		Phone:           "555-0100",
		ExtractedSkills: []string{"Go", "SQL"},
		ExtractedProjects: []api.ExtractedEntry{
			{Title: "resume-intake", Bullets: []string{"CLI client"}},
		},
	})

	r := profile.New(client, identity.Session{IdentityKey: "user_1", Name: "Jane", Email: "jane@example.com"})

	// First sign-in creates the profile.
	user, err := r.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user_1", user.IdentityKey)
	assert.Equal(t, "Jane", user.Name)

	// Second sign-in finds it.
	again := profile.New(client, r.Session())
	found, err := again.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// Upload produces a draft without touching the profile.
	extraction, err := r.UploadResume(ctx, "cv.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	draft := profile.ApplyExtraction(profile.DraftFromUser(r.Profile()), extraction)
	assert.Equal(t, "Jane", draft.Name)
	assert.Equal(t, "555-0100", draft.Phone)
	assert.Equal(t, "Go, SQL", draft.Skills)
	assert.Equal(t, "", r.Profile().Phone)

	saved, err := r.Save(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", saved.Phone)
	assert.Equal(t, "555-0100", r.Profile().Phone)

	// Collections: server assigns ids, local state follows the response.
	withProject, err := r.AddProject(ctx, api.ProjectInput{ProjectName: "X", Skills: []string{"Go"}, SampleBullets: []string{"did thing"}})
	require.NoError(t, err)
	require.Len(t, withProject.Projects, 1)
	projectID := withProject.Projects[0].ID
	assert.NotEmpty(t, projectID)

	updated, err := r.UpdateProject(ctx, projectID, api.ProjectInput{ProjectName: "Y", Skills: []string{"Go", "gin"}})
	require.NoError(t, err)
	assert.Equal(t, "Y", updated.Projects[0].ProjectName)
	assert.Equal(t, []string{"Go", "gin"}, updated.Projects[0].Skills)
	assert.Empty(t, updated.Projects[0].SampleBullets)

	withWork, err := r.AddWorkExperience(ctx, api.WorkExperienceInput{Company: "Acme", Position: "Engineer", StartDate: "2021-01"})
	require.NoError(t, err)
	require.Len(t, withWork.WorkExperiences, 1)
	workID := withWork.WorkExperiences[0].ID

	_, err = r.UpdateWorkExperience(ctx, workID, api.WorkExperienceInput{Company: "Acme", Position: "Senior Engineer", StartDate: "2021-01"})
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", r.Profile().WorkExperiences[0].Position)

	stored, ok := backend.User("user_1")
	require.True(t, ok)
	require.Len(t, stored.Projects, 1)
	assert.Equal(t, stored.Projects[0].ID, r.Profile().Projects[0].ID)
	assert.Equal(t, stored.WorkExperiences[0].Position, r.Profile().WorkExperiences[0].Position)

	_, err = r.DeleteProject(ctx, projectID)
	require.NoError(t, err)
	_, err = r.DeleteWorkExperience(ctx, workID)
	require.NoError(t, err)
	assert.Empty(t, r.Profile().Projects)
	assert.Empty(t, r.Profile().WorkExperiences)

	// Deleting twice reports the backend's message and keeps local state.
	before := *r.Profile()
	_, err = r.DeleteProject(ctx, projectID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Project not found")
	assert.True(t, errors.Is(err, api.ErrRemoteFailure))
	assert.False(t, errors.Is(err, api.ErrNotFound))
	assert.Equal(t, before, *r.Profile())
}

func TestSearchEndpoints(t *testing.T) {
	_, client := setupTestServer(t)
	ctx := context.Background()

	user, err := client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k1", Name: "Jane"})
	require.NoError(t, err)
	_, err = client.AddWorkExperience(ctx, user.ID, api.WorkExperienceInput{Company: "Acme", Skills: []string{"Go"}})
	require.NoError(t, err)
	_, err = client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k2", Name: "Sam"})
	require.NoError(t, err)

	bySkill, err := client.SearchUsersBySkills(ctx, []string{"go", "rust"})
	require.NoError(t, err)
	require.Len(t, bySkill, 1)
	assert.Equal(t, "k1", bySkill[0].IdentityKey)

	byCompany, err := client.GetUsersByCompany(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, byCompany, 1)

	none, err := client.GetUsersByCompany(ctx, "Initech")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	_, client := setupTestServer(t)
	ctx := context.Background()

	_, err := client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k1"})
	require.NoError(t, err)

	_, err = client.UploadResume(ctx, "k1", "cv.docx", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, "Only PDF files are allowed", err.Error())

	_, err = client.UploadResume(ctx, "k1", "CV.PDF", strings.NewReader("x"))
	require.NoError(t, err)

	data, err := client.GetResumeData(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, data.ResumePdf)
	assert.Equal(t, "CV.PDF", data.ResumePdf.OriginalName)
}

func TestAutomateAndStatus(t *testing.T) {
	_, client := setupTestServer(t)
	ctx := context.Background()

	_, err := client.AutomateApplication(ctx, "missing", "https://jobs.example.com/1")
	assert.True(t, errors.Is(err, api.ErrNotFound))

	_, err = client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k1", Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	resp, err := client.AutomateApplication(ctx, "k1", "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.Equal(t, "partial", resp.Result.Status)
	assert.Contains(t, resp.Result.FilledFields, api.FilledField{Field: "name", Value: "Jane"})
	assert.Contains(t, resp.Result.FilledFields, api.FilledField{Field: "phone", Note: "not in profile, left blank"})

	status, err := client.GetApplicationStatus(ctx, resp.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, "partial", status.Status)
}

func TestMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewServer(zerolog.Nop()).Router(DefaultPrefix)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/users/clerk", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message")
}

func TestUploadReturnsSampleByDefault(t *testing.T) {
	_, client := setupTestServer(t)
	ctx := context.Background()

	_, err := client.CreateUser(ctx, api.CreateUserRequest{IdentityKey: "k1"})
	require.NoError(t, err)

	resp, err := client.UploadResume(ctx, "k1", "cv.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, SampleExtraction().Name, resp.ExtractedData.Name)
	assert.Equal(t, api.Text("3.7"), resp.ExtractedData.GPA)
}
