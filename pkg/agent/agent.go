package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrInvalidJobURL means the job URL is empty or not http(s).
var ErrInvalidJobURL = errors.New("invalid job application URL")

// Automator is the backend surface the agent needs.
type Automator interface {
	AutomateApplication(ctx context.Context, identityKey, jobURL string) (api.AutomationResponse, error)
	GetApplicationStatus(ctx context.Context, applicationID string) (api.ApplicationStatus, error)
}

// Agent submits job applications through the backend's automation service.
type Agent struct {
	automator Automator
	session   identity.Session
	logger    zerolog.Logger
}

// Report summarises one automation run.
type Report struct {
	ApplicationID string
	JobURL        string
	Status        string
	Filled        []api.FilledField
	Notes         []api.FilledField
	Errors        []string
}

// New creates an agent acting for session.
func New(automator Automator, session identity.Session, logger zerolog.Logger) (a *Agent) {
	a = &Agent{
		automator: automator,
		session:   session,
		logger:    logger,
	}
	return a
}

// Run asks the automation service to fill out the application at jobURL.
func (a *Agent) Run(ctx context.Context, jobURL string) (report Report, err error) {
	jobURL, err = NormalizeJobURL(jobURL)
	if err != nil {
		return report, err
	}

	err = a.session.Validate()
	if err != nil {
		err = errors.Wrap(err, "sign in to use the application agent")
		return report, err
	}

	a.logger.Debug().Str("url", jobURL).Msg("starting application automation")

	var resp api.AutomationResponse
	resp, err = a.automator.AutomateApplication(ctx, a.session.IdentityKey, jobURL)
	if err != nil {
		err = errors.Wrap(err, "failed to automate application")
		return report, err
	}

	report = NewReport(jobURL, resp)
	a.logger.Debug().
		Str("status", report.Status).
		Int("filled", len(report.Filled)).
		Int("errors", len(report.Errors)).
		Msg("application automation finished")

	return report, err
}

// Status fetches the state of an earlier automation job.
func (a *Agent) Status(ctx context.Context, applicationID string) (status api.ApplicationStatus, err error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		err = errors.New("application id is required")
		return status, err
	}

	status, err = a.automator.GetApplicationStatus(ctx, applicationID)
	if err != nil {
		err = errors.Wrapf(err, "failed to get status for application %s", applicationID)
		return status, err
	}

	return status, err
}

// NormalizeJobURL trims the URL and checks that it is absolute http or https.
func NormalizeJobURL(raw string) (jobURL string, err error) {
	jobURL = strings.TrimSpace(raw)
	if jobURL == "" {
		err = errors.Wrap(ErrInvalidJobURL, "please enter a job application URL")
		return jobURL, err
	}

	parsed, parseErr := url.Parse(jobURL)
	if parseErr != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		err = errors.Wrapf(ErrInvalidJobURL, "%q is not an http(s) URL", jobURL)
		return jobURL, err
	}

	return jobURL, err
}

// NewReport splits the service's fill report into filled values and notes.
func NewReport(jobURL string, resp api.AutomationResponse) (report Report) {
	report = Report{
		ApplicationID: resp.ApplicationID,
		JobURL:        jobURL,
		Status:        resp.Result.Status,
		Filled:        make([]api.FilledField, 0),
		Notes:         make([]api.FilledField, 0),
		Errors:        append([]string{}, resp.Result.Errors...),
	}

	for _, f := range resp.Result.FilledFields {
		if f.Value != "" {
			report.Filled = append(report.Filled, f)
			continue
		}
		report.Notes = append(report.Notes, f)
	}

	return report
}

// Lines renders the report for a terminal.
func (r Report) Lines() (lines []string) {
	status := r.Status
	if status == "" {
		status = "unknown"
	}

	if r.JobURL != "" {
		lines = append(lines, fmt.Sprintf("Application: %s", r.JobURL))
	}
	if r.ApplicationID != "" {
		lines = append(lines, fmt.Sprintf("Application ID: %s", r.ApplicationID))
	}
	lines = append(lines, fmt.Sprintf("Status: %s", status))

	lines = append(lines, fmt.Sprintf("Filled fields (%d):", len(r.Filled)))
	for _, f := range r.Filled {
		lines = append(lines, fmt.Sprintf("  %s: %s", f.Field, f.Value))
	}

	if len(r.Notes) > 0 {
		lines = append(lines, fmt.Sprintf("Notes (%d):", len(r.Notes)))
		for _, f := range r.Notes {
			lines = append(lines, fmt.Sprintf("  %s: %s", f.Field, f.Note))
		}
	}

	if len(r.Errors) > 0 {
		lines = append(lines, fmt.Sprintf("Errors (%d):", len(r.Errors)))
		for _, e := range r.Errors {
			lines = append(lines, "  "+e)
		}
	}

	return lines
}
