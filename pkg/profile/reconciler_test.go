package profile

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/identity"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records calls and answers from canned functions.
type fakeStore struct {
	mu    sync.Mutex
	calls []string

	getUser    func(key string) (api.User, error)
	createUser func(req api.CreateUserRequest) (api.User, error)
	updateUser func(key string, update api.UserUpdate) (api.User, error)
	collection func(op, profileID, itemID string) (api.User, error)
	upload     func(key, filename string) (api.UploadResponse, error)
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) GetUserByIdentity(_ context.Context, key string) (api.User, error) {
	f.record("get " + key)
	return f.getUser(key)
}

func (f *fakeStore) CreateUser(_ context.Context, req api.CreateUserRequest) (api.User, error) {
	f.record("create " + req.IdentityKey)
	return f.createUser(req)
}

func (f *fakeStore) UpdateUserByIdentity(_ context.Context, key string, update api.UserUpdate) (api.User, error) {
	f.record("update " + key)
	return f.updateUser(key, update)
}

func (f *fakeStore) AddProject(_ context.Context, profileID string, _ api.ProjectInput) (api.User, error) {
	f.record("addProject " + profileID)
	return f.collection("addProject", profileID, "")
}

func (f *fakeStore) UpdateProject(_ context.Context, profileID, projectID string, _ api.ProjectInput) (api.User, error) {
	f.record("updateProject " + profileID + "/" + projectID)
	return f.collection("updateProject", profileID, projectID)
}

func (f *fakeStore) DeleteProject(_ context.Context, profileID, projectID string) (api.User, error) {
	f.record("deleteProject " + profileID + "/" + projectID)
	return f.collection("deleteProject", profileID, projectID)
}

func (f *fakeStore) AddWorkExperience(_ context.Context, profileID string, _ api.WorkExperienceInput) (api.User, error) {
	f.record("addWorkExperience " + profileID)
	return f.collection("addWorkExperience", profileID, "")
}

func (f *fakeStore) UpdateWorkExperience(_ context.Context, profileID, experienceID string, _ api.WorkExperienceInput) (api.User, error) {
	f.record("updateWorkExperience " + profileID + "/" + experienceID)
	return f.collection("updateWorkExperience", profileID, experienceID)
}

func (f *fakeStore) DeleteWorkExperience(_ context.Context, profileID, experienceID string) (api.User, error) {
	f.record("deleteWorkExperience " + profileID + "/" + experienceID)
	return f.collection("deleteWorkExperience", profileID, experienceID)
}

func (f *fakeStore) UploadResume(_ context.Context, key, filename string, _ io.Reader) (api.UploadResponse, error) {
	f.record("upload " + key)
	return f.upload(key, filename)
}

func existingUser() api.User {
	return api.User{ID: "u1", IdentityKey: "k1", Name: "Jane", Email: "jane@example.com"}
}

func readyReconciler(t *testing.T, store *fakeStore) *Reconciler {
	t.Helper()
	if store.getUser == nil {
		store.getUser = func(string) (api.User, error) { return existingUser(), nil }
	}
	r := New(store, identity.Session{IdentityKey: "k1", Name: "Jane", Email: "jane@example.com"})
	_, err := r.Bootstrap(context.Background())
	require.NoError(t, err)
	return r
}

func TestBootstrapExisting(t *testing.T) {
	store := &fakeStore{}
	r := readyReconciler(t, store)

	assert.Equal(t, []string{"get k1"}, store.Calls())
	require.NotNil(t, r.Profile())
	assert.Equal(t, "u1", r.Profile().ID)
}

func TestBootstrapCreatesOnNotFound(t *testing.T) {
	store := &fakeStore{
		getUser: func(string) (api.User, error) {
			return api.User{}, &api.RemoteError{StatusCode: 404, Message: "User not found"}
		},
		createUser: func(req api.CreateUserRequest) (api.User, error) {
			return api.User{ID: "new", IdentityKey: req.IdentityKey, Name: req.Name, Email: req.Email}, nil
		},
	}
	r := New(store, identity.Session{IdentityKey: "u9", Email: "sam.lee@example.com"})

	user, err := r.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u9", user.IdentityKey)
	assert.Equal(t, "Sam Lee", user.Name)
	assert.Equal(t, []string{"get u9", "create u9"}, store.Calls())
	assert.Equal(t, "new", r.Profile().ID)
}

func TestBootstrapPropagatesOtherErrors(t *testing.T) {
	store := &fakeStore{
		getUser: func(string) (api.User, error) {
			return api.User{}, &api.RemoteError{StatusCode: 500, Message: "boom"}
		},
	}
	r := New(store, identity.Session{IdentityKey: "k1"})

	_, err := r.Bootstrap(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrRemoteFailure))
	assert.Equal(t, []string{"get k1"}, store.Calls())
	assert.Nil(t, r.Profile())
}

func TestBootstrapRequiresIdentity(t *testing.T) {
	store := &fakeStore{}
	r := New(store, identity.Session{})

	_, err := r.Bootstrap(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Empty(t, store.Calls())
}

func TestCollectionOpsBeforeReady(t *testing.T) {
	ctx := context.Background()
	project := api.ProjectInput{ProjectName: "X"}
	experience := api.WorkExperienceInput{Company: "Acme"}

	ops := map[string]func(r *Reconciler) error{
		"addProject": func(r *Reconciler) error { _, err := r.AddProject(ctx, project); return err },
		"updateProject": func(r *Reconciler) error {
			_, err := r.UpdateProject(ctx, "p1", project)
			return err
		},
		"deleteProject":     func(r *Reconciler) error { _, err := r.DeleteProject(ctx, "p1"); return err },
		"addWorkExperience": func(r *Reconciler) error { _, err := r.AddWorkExperience(ctx, experience); return err },
		"updateWorkExperience": func(r *Reconciler) error {
			_, err := r.UpdateWorkExperience(ctx, "w1", experience)
			return err
		},
		"deleteWorkExperience": func(r *Reconciler) error { _, err := r.DeleteWorkExperience(ctx, "w1"); return err },
		"save":                 func(r *Reconciler) error { _, err := r.Save(ctx, Draft{Name: "Jane"}); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			r := New(store, identity.Session{IdentityKey: "k1"})

			err := op(r)
			assert.True(t, errors.Is(err, ErrNotReady), "got %v", err)
			assert.Empty(t, store.Calls())
		})
	}
}

func TestCollectionOpsWithoutProfileID(t *testing.T) {
	store := &fakeStore{
		getUser: func(string) (api.User, error) { return api.User{IdentityKey: "k1"}, nil },
	}
	r := readyReconciler(t, store)

	_, err := r.AddProject(context.Background(), api.ProjectInput{ProjectName: "X"})
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Equal(t, []string{"get k1"}, store.Calls())
}

func TestCollectionOpsRequireSubEntityID(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	r := readyReconciler(t, store)

	_, err := r.UpdateProject(ctx, "", api.ProjectInput{ProjectName: "X"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = r.DeleteProject(ctx, "  ")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = r.UpdateWorkExperience(ctx, "", api.WorkExperienceInput{Company: "Acme"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = r.DeleteWorkExperience(ctx, "")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	assert.Equal(t, []string{"get k1"}, store.Calls())
}

func TestCollectionOpsValidateInput(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	r := readyReconciler(t, store)

	_, err := r.AddProject(ctx, api.ProjectInput{ProjectName: "   "})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = r.AddWorkExperience(ctx, api.WorkExperienceInput{Position: "Engineer"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	assert.Equal(t, []string{"get k1"}, store.Calls())
}

func TestAddProjectReplacesProfileFromResponse(t *testing.T) {
	response := existingUser()
	response.Projects = []api.Project{{ID: "p1", ProjectName: "X", Skills: []string{"Go"}, SampleBullets: []string{"did thing"}}}

	store := &fakeStore{
		collection: func(op, profileID, itemID string) (api.User, error) {
			return response, nil
		},
	}
	r := readyReconciler(t, store)

	user, err := r.AddProject(context.Background(), api.ProjectInput{
		ProjectName:   "X",
		Skills:        []string{"Go"},
		SampleBullets: []string{"did thing"},
	})
	require.NoError(t, err)
	assert.Equal(t, response, user)
	assert.Equal(t, response, *r.Profile())
	assert.Equal(t, []string{"get k1", "addProject u1"}, store.Calls())
}

func TestEveryCollectionOpIssuesOneScopedCall(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		collection: func(op, profileID, itemID string) (api.User, error) {
			u := existingUser()
			u.Name = op
			return u, nil
		},
	}
	r := readyReconciler(t, store)

	_, err := r.UpdateProject(ctx, "p1", api.ProjectInput{ProjectName: "X"})
	require.NoError(t, err)
	_, err = r.DeleteProject(ctx, "p1")
	require.NoError(t, err)
	_, err = r.AddWorkExperience(ctx, api.WorkExperienceInput{Company: "Acme"})
	require.NoError(t, err)
	_, err = r.UpdateWorkExperience(ctx, "w1", api.WorkExperienceInput{Company: "Acme"})
	require.NoError(t, err)
	_, err = r.DeleteWorkExperience(ctx, "w1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"get k1",
		"updateProject u1/p1",
		"deleteProject u1/p1",
		"addWorkExperience u1",
		"updateWorkExperience u1/w1",
		"deleteWorkExperience u1/w1",
	}, store.Calls())
	assert.Equal(t, "deleteWorkExperience", r.Profile().Name)
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{
		collection: func(string, string, string) (api.User, error) {
			return api.User{ID: "garbage"}, &api.RemoteError{StatusCode: 500, Message: "db down"}
		},
		updateUser: func(string, api.UserUpdate) (api.User, error) {
			return api.User{}, &api.RemoteError{StatusCode: 400, Message: "bad email"}
		},
	}
	r := readyReconciler(t, store)
	before := *r.Profile()

	_, err := r.AddProject(context.Background(), api.ProjectInput{ProjectName: "X"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrRemoteFailure))
	assert.Contains(t, err.Error(), "db down")

	_, err = r.Save(context.Background(), Draft{Name: "New"})
	require.Error(t, err)

	assert.Equal(t, before, *r.Profile())

	// The in-flight flag is released after a failure.
	store.collection = func(string, string, string) (api.User, error) { return existingUser(), nil }
	_, err = r.AddProject(context.Background(), api.ProjectInput{ProjectName: "X"})
	assert.NoError(t, err)
}

func TestProfileReturnsIndependentCopy(t *testing.T) {
	gpa := 3.9
	server := existingUser()
	server.GPA = &gpa
	server.Projects = []api.Project{{ID: "p1", ProjectName: "server", Skills: []string{"Go"}}}
	server.WorkExperiences = []api.WorkExperience{{ID: "w1", Company: "Acme"}}
	server.ParsedResumeData = &api.ParsedResumeData{ExtractedSkills: []string{"Go"}}

	store := &fakeStore{
		getUser: func(string) (api.User, error) { return server, nil },
	}
	r := readyReconciler(t, store)

	snap := r.Profile()
	snap.Projects[0].ProjectName = "caller edit"
	snap.Projects[0].Skills[0] = "Rust"
	snap.WorkExperiences[0].Company = "Initech"
	*snap.GPA = 1.0
	snap.ParsedResumeData.ExtractedSkills[0] = "Rust"
	snap.Projects = append(snap.Projects, api.Project{ID: "p2"})

	fresh := r.Profile()
	assert.Equal(t, "server", fresh.Projects[0].ProjectName)
	assert.Equal(t, []string{"Go"}, fresh.Projects[0].Skills)
	assert.Len(t, fresh.Projects, 1)
	assert.Equal(t, "Acme", fresh.WorkExperiences[0].Company)
	assert.InDelta(t, 3.9, *fresh.GPA, 0)
	assert.Equal(t, []string{"Go"}, fresh.ParsedResumeData.ExtractedSkills)

	// The response the store handed over is not aliased either.
	server.Projects[0].ProjectName = "store edit"
	assert.Equal(t, "server", r.Profile().Projects[0].ProjectName)
}

func TestSaveSendsScalarSubset(t *testing.T) {
	var got []api.UserUpdate
	store := &fakeStore{
		updateUser: func(key string, update api.UserUpdate) (api.User, error) {
			got = append(got, update)
			u := existingUser()
			u.Name = *update.Name
			u.Phone = *update.Phone
			u.GPA = update.GPA
			return u, nil
		},
	}
	r := readyReconciler(t, store)

	draft := Draft{
		Name:       "Jane Q",
		Email:      "jane@example.com",
		Phone:      "555",
		GPA:        "3.9",
		Skills:     "Go, SQL",
		Experience: "Acme\n- did",
	}

	first, err := r.Save(context.Background(), draft)
	require.NoError(t, err)
	second, err := r.Save(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, got, 2)
	assert.Equal(t, got[0], got[1])
	assert.Equal(t, "Jane Q", *got[0].Name)
	require.NotNil(t, got[0].GPA)
	assert.InDelta(t, 3.9, *got[0].GPA, 0.0001)
	assert.Equal(t, []string{"get k1", "update k1", "update k1"}, store.Calls())
	assert.Equal(t, "Jane Q", r.Profile().Name)
}

func TestSaveRejectsNonNumericGPA(t *testing.T) {
	store := &fakeStore{}
	r := readyReconciler(t, store)

	_, err := r.Save(context.Background(), Draft{Name: "Jane", GPA: "three"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, []string{"get k1"}, store.Calls())
}

func TestMutationInFlightIsRejected(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	store := &fakeStore{
		collection: func(op, profileID, itemID string) (api.User, error) {
			if op == "addProject" {
				close(entered)
				<-unblock
			}
			return existingUser(), nil
		},
	}
	r := readyReconciler(t, store)

	done := make(chan error)
	go func() {
		_, err := r.AddProject(context.Background(), api.ProjectInput{ProjectName: "slow"})
		done <- err
	}()
	<-entered

	_, err := r.DeleteProject(context.Background(), "p1")
	assert.True(t, errors.Is(err, ErrBusy))

	close(unblock)
	require.NoError(t, <-done)

	_, err = r.DeleteProject(context.Background(), "p1")
	assert.NoError(t, err)
}

func TestUploadResumeDoesNotTouchProfile(t *testing.T) {
	store := &fakeStore{
		upload: func(key, filename string) (api.UploadResponse, error) {
			return api.UploadResponse{ExtractedData: api.ExtractionResult{Name: "Parsed", ExtractedSkills: []string{"Go"}}}, nil
		},
	}
	r := readyReconciler(t, store)
	before := *r.Profile()

	extraction, err := r.UploadResume(context.Background(), "resume.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "Parsed", extraction.Name)
	assert.Equal(t, before, *r.Profile())
	assert.Equal(t, []string{"get k1", "upload k1"}, store.Calls())
}

func TestSeedName(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Jane Doe", "x@y.z", "Jane Doe"},
		{"", "jane.doe@example.com", "Jane Doe"},
		{"", "sam_lee-smith@example.com", "Sam Lee Smith"},
		{"", "", "User"},
		{"  ", "not-an-email", "User"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeedName(tt.name, tt.email))
	}
}
