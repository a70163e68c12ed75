package profile

import (
	"context"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrNotReady means the profile has not been created remotely yet.
	ErrNotReady = errors.New("profile not ready")
	// ErrInvalidArgument means the caller broke the operation's contract. No request was sent.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBusy means another save or collection change is still outstanding.
	ErrBusy = errors.New("another profile change is in flight")
)

// defaultName is used when neither the session nor the email give a name.
const defaultName = "User"

// Store is the remote profile store the reconciler drives.
type Store interface {
	GetUserByIdentity(ctx context.Context, identityKey string) (api.User, error)
	CreateUser(ctx context.Context, req api.CreateUserRequest) (api.User, error)
	UpdateUserByIdentity(ctx context.Context, identityKey string, update api.UserUpdate) (api.User, error)
	AddProject(ctx context.Context, profileID string, input api.ProjectInput) (api.User, error)
	UpdateProject(ctx context.Context, profileID, projectID string, input api.ProjectInput) (api.User, error)
	DeleteProject(ctx context.Context, profileID, projectID string) (api.User, error)
	AddWorkExperience(ctx context.Context, profileID string, input api.WorkExperienceInput) (api.User, error)
	UpdateWorkExperience(ctx context.Context, profileID, experienceID string, input api.WorkExperienceInput) (api.User, error)
	DeleteWorkExperience(ctx context.Context, profileID, experienceID string) (api.User, error)
	UploadResume(ctx context.Context, identityKey, filename string, file io.Reader) (api.UploadResponse, error)
}

// Reconciler holds the last profile the backend returned and turns edits into remote calls.
// Local state only ever changes to a full server response.
type Reconciler struct {
	store    Store
	session  identity.Session
	logger   zerolog.Logger
	validate *validator.Validate

	mu       sync.Mutex
	current  *api.User
	inFlight bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler's logger.
func WithLogger(logger zerolog.Logger) (opt Option) {
	opt = func(r *Reconciler) {
		r.logger = logger
	}
	return opt
}

// New creates a reconciler for one signed-in session.
func New(store Store, session identity.Session, opts ...Option) (r *Reconciler) {
	r = &Reconciler{
		store:    store,
		session:  session,
		logger:   zerolog.Nop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the identity the reconciler acts for.
func (r *Reconciler) Session() (session identity.Session) {
	session = r.session
	return session
}

// Profile returns a copy of the persisted profile, or nil before Bootstrap.
func (r *Reconciler) Profile() (user *api.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return user
	}
	copied := cloneUser(*r.current)
	user = &copied
	return user
}

// Bootstrap fetches the profile for the session, creating it on first use.
func (r *Reconciler) Bootstrap(ctx context.Context) (user api.User, err error) {
	err = r.session.Validate()
	if err != nil {
		err = errors.Wrap(ErrInvalidArgument, err.Error())
		return user, err
	}

	err = r.acquire()
	if err != nil {
		return user, err
	}
	defer r.release()

	key := r.session.IdentityKey
	r.logger.Debug().Str("identity", key).Msg("fetching profile")

	user, err = r.store.GetUserByIdentity(ctx, key)
	if err == nil {
		r.replace(user)
		return user, err
	}

	if !errors.Is(err, api.ErrNotFound) {
		err = errors.Wrapf(err, "failed to fetch profile for %s", key)
		return user, err
	}

	seed := api.CreateUserRequest{
		IdentityKey: key,
		Name:        SeedName(r.session.Name, r.session.Email),
		Email:       r.session.Email,
	}
	r.logger.Debug().Str("identity", key).Str("name", seed.Name).Msg("no profile found, creating")

	user, err = r.store.CreateUser(ctx, seed)
	if err != nil {
		err = errors.Wrapf(err, "failed to create profile for %s", key)
		return user, err
	}

	r.replace(user)
	return user, err
}

// Save persists the draft's editable scalar fields and adopts the server's profile.
func (r *Reconciler) Save(ctx context.Context, draft Draft) (user api.User, err error) {
	var update api.UserUpdate
	update, err = UpdateFromDraft(draft)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("save profile", func(string) (api.User, error) {
		return r.store.UpdateUserByIdentity(ctx, r.session.IdentityKey, update)
	})
	return user, err
}

// AddProject creates a project on the profile.
func (r *Reconciler) AddProject(ctx context.Context, input api.ProjectInput) (user api.User, err error) {
	input, err = r.checkProject(input)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("add project", func(profileID string) (api.User, error) {
		return r.store.AddProject(ctx, profileID, input)
	})
	return user, err
}

// UpdateProject replaces the fields of an existing project.
func (r *Reconciler) UpdateProject(ctx context.Context, projectID string, input api.ProjectInput) (user api.User, err error) {
	err = requireID("project", projectID)
	if err != nil {
		return user, err
	}

	input, err = r.checkProject(input)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("update project", func(profileID string) (api.User, error) {
		return r.store.UpdateProject(ctx, profileID, projectID, input)
	})
	return user, err
}

// DeleteProject removes a project.
func (r *Reconciler) DeleteProject(ctx context.Context, projectID string) (user api.User, err error) {
	err = requireID("project", projectID)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("delete project", func(profileID string) (api.User, error) {
		return r.store.DeleteProject(ctx, profileID, projectID)
	})
	return user, err
}

// AddWorkExperience creates a work experience on the profile.
func (r *Reconciler) AddWorkExperience(ctx context.Context, input api.WorkExperienceInput) (user api.User, err error) {
	input, err = r.checkExperience(input)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("add work experience", func(profileID string) (api.User, error) {
		return r.store.AddWorkExperience(ctx, profileID, input)
	})
	return user, err
}

// UpdateWorkExperience replaces the fields of an existing work experience.
func (r *Reconciler) UpdateWorkExperience(ctx context.Context, experienceID string, input api.WorkExperienceInput) (user api.User, err error) {
	err = requireID("work experience", experienceID)
	if err != nil {
		return user, err
	}

	input, err = r.checkExperience(input)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("update work experience", func(profileID string) (api.User, error) {
		return r.store.UpdateWorkExperience(ctx, profileID, experienceID, input)
	})
	return user, err
}

// DeleteWorkExperience removes a work experience.
func (r *Reconciler) DeleteWorkExperience(ctx context.Context, experienceID string) (user api.User, err error) {
	err = requireID("work experience", experienceID)
	if err != nil {
		return user, err
	}

	user, err = r.mutate("delete work experience", func(profileID string) (api.User, error) {
		return r.store.DeleteWorkExperience(ctx, profileID, experienceID)
	})
	return user, err
}

// UploadResume sends a resume to the parser and returns its extraction.
// The persisted profile is not touched; apply the result to a Draft and Save it.
func (r *Reconciler) UploadResume(ctx context.Context, filename string, file io.Reader) (extraction api.ExtractionResult, err error) {
	err = r.session.Validate()
	if err != nil {
		err = errors.Wrap(ErrInvalidArgument, err.Error())
		return extraction, err
	}

	var resp api.UploadResponse
	resp, err = r.store.UploadResume(ctx, r.session.IdentityKey, filename, file)
	if err != nil {
		err = errors.Wrapf(err, "failed to upload resume %s", filename)
		return extraction, err
	}

	extraction = resp.ExtractedData
	r.logger.Debug().
		Str("file", filename).
		Int("skills", len(extraction.ExtractedSkills)).
		Int("work", len(extraction.ExtractedWorkExperience)).
		Int("projects", len(extraction.ExtractedProjects)).
		Msg("resume extracted")

	return extraction, err
}

// UpdateFromDraft builds the partial update Save sends: the editable scalar fields only.
func UpdateFromDraft(draft Draft) (update api.UserUpdate, err error) {
	update = api.UserUpdate{
		Name:        stringPtr(draft.Name),
		Email:       stringPtr(draft.Email),
		Phone:       stringPtr(draft.Phone),
		University:  stringPtr(draft.University),
		Major:       stringPtr(draft.Major),
		LinkedinURL: stringPtr(draft.LinkedinURL),
		GithubURL:   stringPtr(draft.GithubURL),
		WebsiteURL:  stringPtr(draft.WebsiteURL),
	}

	gpa := strings.TrimSpace(draft.GPA)
	if gpa == "" {
		return update, err
	}

	var value float64
	value, err = strconv.ParseFloat(gpa, 64)
	if err != nil {
		err = errors.Wrapf(ErrInvalidArgument, "gpa %q is not a number", gpa)
		return update, err
	}
	update.GPA = &value

	return update, err
}

// SeedName picks the display name for a new profile.
func SeedName(name, email string) (seed string) {
	seed = strings.TrimSpace(name)
	if seed != "" {
		return seed
	}

	local, _, found := strings.Cut(strings.TrimSpace(email), "@")
	if found && local != "" {
		words := strings.FieldsFunc(local, func(r rune) bool {
			return r == '.' || r == '_' || r == '-' || r == '+'
		})
		if len(words) > 0 {
			seed = cases.Title(language.English).String(strings.Join(words, " "))
			return seed
		}
	}

	seed = defaultName
	return seed
}

// mutate runs one remote change with the in-flight flag held and adopts the response.
func (r *Reconciler) mutate(op string, call func(profileID string) (api.User, error)) (user api.User, err error) {
	var profileID string
	profileID, err = r.begin()
	if err != nil {
		err = errors.Wrap(err, op)
		return user, err
	}
	defer r.release()

	user, err = call(profileID)
	if err != nil {
		r.logger.Debug().Err(err).Str("op", op).Msg("profile change failed")
		err = errors.Wrapf(err, "failed to %s", op)
		return user, err
	}

	r.replace(user)
	r.logger.Debug().
		Str("op", op).
		Int("projects", len(user.Projects)).
		Int("workExperiences", len(user.WorkExperiences)).
		Msg("profile replaced from server")

	return user, err
}

// begin checks the profile exists remotely and takes the in-flight flag.
func (r *Reconciler) begin() (profileID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil || r.current.ID == "" {
		err = ErrNotReady
		return profileID, err
	}
	if r.inFlight {
		err = ErrBusy
		return profileID, err
	}

	r.inFlight = true
	profileID = r.current.ID
	return profileID, err
}

func (r *Reconciler) acquire() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight {
		err = ErrBusy
		return err
	}
	r.inFlight = true
	return err
}

func (r *Reconciler) release() {
	r.mu.Lock()
	r.inFlight = false
	r.mu.Unlock()
}

func (r *Reconciler) replace(user api.User) {
	stored := cloneUser(user)
	r.mu.Lock()
	r.current = &stored
	r.mu.Unlock()
}

// cloneUser copies user so the result shares no slices or pointers with it.
func cloneUser(user api.User) (clone api.User) {
	clone = user

	if user.GPA != nil {
		gpa := *user.GPA
		clone.GPA = &gpa
	}
	if user.ResumePdf != nil {
		pdf := *user.ResumePdf
		clone.ResumePdf = &pdf
	}
	if user.ParsedResumeData != nil {
		parsed := *user.ParsedResumeData
		parsed.ExtractedSkills = slices.Clone(parsed.ExtractedSkills)
		parsed.ExtractedEducation = slices.Clone(parsed.ExtractedEducation)
		parsed.ExtractedExperience = slices.Clone(parsed.ExtractedExperience)
		clone.ParsedResumeData = &parsed
	}
	clone.CreatedAt = cloneTime(user.CreatedAt)
	clone.UpdatedAt = cloneTime(user.UpdatedAt)

	if user.Projects != nil {
		clone.Projects = make([]api.Project, len(user.Projects))
		for i, p := range user.Projects {
			p.Skills = slices.Clone(p.Skills)
			p.SampleBullets = slices.Clone(p.SampleBullets)
			p.CreatedAt = cloneTime(p.CreatedAt)
			p.UpdatedAt = cloneTime(p.UpdatedAt)
			clone.Projects[i] = p
		}
	}

	if user.WorkExperiences != nil {
		clone.WorkExperiences = make([]api.WorkExperience, len(user.WorkExperiences))
		for i, w := range user.WorkExperiences {
			w.Skills = slices.Clone(w.Skills)
			w.SampleBullets = slices.Clone(w.SampleBullets)
			w.CreatedAt = cloneTime(w.CreatedAt)
			w.UpdatedAt = cloneTime(w.UpdatedAt)
			clone.WorkExperiences[i] = w
		}
	}

	return clone
}

func cloneTime(t *time.Time) (clone *time.Time) {
	if t == nil {
		return clone
	}
	copied := *t
	clone = &copied
	return clone
}

func (r *Reconciler) checkProject(input api.ProjectInput) (checked api.ProjectInput, err error) {
	checked = input
	checked.ProjectName = strings.TrimSpace(checked.ProjectName)

	err = r.validate.Struct(checked)
	if err != nil {
		err = errors.Wrapf(ErrInvalidArgument, "project name is required: %v", err)
		return checked, err
	}
	return checked, err
}

func (r *Reconciler) checkExperience(input api.WorkExperienceInput) (checked api.WorkExperienceInput, err error) {
	checked = input
	checked.Company = strings.TrimSpace(checked.Company)

	err = r.validate.Struct(checked)
	if err != nil {
		err = errors.Wrapf(ErrInvalidArgument, "company is required: %v", err)
		return checked, err
	}
	return checked, err
}

func requireID(kind, id string) (err error) {
	if strings.TrimSpace(id) == "" {
		err = errors.Wrapf(ErrInvalidArgument, "%s id is required", kind)
		return err
	}
	return err
}

func stringPtr(s string) (p *string) {
	p = &s
	return p
}
