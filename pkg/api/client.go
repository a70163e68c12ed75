package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is where the backend listens in local development.
	DefaultBaseURL = "http://localhost:5001/api"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second
	// UserAgent identifies this client to the backend.
	UserAgent = "resume-intake/1.0"
)

// Client is a typed client for the resume intake backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) (opt Option) {
	opt = func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
	return opt
}

// WithBearerToken sends the session token on every request.
func WithBearerToken(token string) (opt Option) {
	opt = func(c *Client) {
		c.token = token
	}
	return opt
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) (opt Option) {
	opt = func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
	return opt
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) (opt Option) {
	opt = func(c *Client) {
		c.logger = logger
	}
	return opt
}

// NewClient creates a new backend client.
func NewClient(baseURL string, opts ...Option) (client *Client) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client = &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() (baseURL string) {
	baseURL = c.baseURL
	return baseURL
}

// GetUserByIdentity fetches the profile for an identity key.
func (c *Client) GetUserByIdentity(ctx context.Context, identityKey string) (user User, err error) {
	err = c.doJSON(ctx, http.MethodGet, "/users/clerk/"+url.PathEscape(identityKey), nil, &user)
	if err != nil {
		markIdentityLookup(err)
	}
	return user, err
}

// CreateUser creates a profile keyed by the request's identity key.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (user User, err error) {
	err = c.doJSON(ctx, http.MethodPost, "/users/clerk", req, &user)
	return user, err
}

// UpdateUserByIdentity applies a partial update to the profile for an identity key.
func (c *Client) UpdateUserByIdentity(ctx context.Context, identityKey string, update UserUpdate) (user User, err error) {
	err = c.doJSON(ctx, http.MethodPut, "/users/clerk/"+url.PathEscape(identityKey), update, &user)
	return user, err
}

// AddProject appends a project to a profile.
func (c *Client) AddProject(ctx context.Context, profileID string, input ProjectInput) (user User, err error) {
	input.Skills = nonNil(input.Skills)
	input.SampleBullets = nonNil(input.SampleBullets)
	err = c.doJSON(ctx, http.MethodPost, subPath(profileID, "projects", ""), input, &user)
	return user, err
}

// UpdateProject replaces the fields of one project.
func (c *Client) UpdateProject(ctx context.Context, profileID, projectID string, input ProjectInput) (user User, err error) {
	input.Skills = nonNil(input.Skills)
	input.SampleBullets = nonNil(input.SampleBullets)
	err = c.doJSON(ctx, http.MethodPut, subPath(profileID, "projects", projectID), input, &user)
	return user, err
}

// DeleteProject removes one project.
func (c *Client) DeleteProject(ctx context.Context, profileID, projectID string) (user User, err error) {
	err = c.doJSON(ctx, http.MethodDelete, subPath(profileID, "projects", projectID), nil, &user)
	return user, err
}

// AddWorkExperience appends a work experience to a profile.
func (c *Client) AddWorkExperience(ctx context.Context, profileID string, input WorkExperienceInput) (user User, err error) {
	input.Skills = nonNil(input.Skills)
	input.SampleBullets = nonNil(input.SampleBullets)
	err = c.doJSON(ctx, http.MethodPost, subPath(profileID, "work-experiences", ""), input, &user)
	return user, err
}

// UpdateWorkExperience replaces the fields of one work experience.
func (c *Client) UpdateWorkExperience(ctx context.Context, profileID, experienceID string, input WorkExperienceInput) (user User, err error) {
	input.Skills = nonNil(input.Skills)
	input.SampleBullets = nonNil(input.SampleBullets)
	err = c.doJSON(ctx, http.MethodPut, subPath(profileID, "work-experiences", experienceID), input, &user)
	return user, err
}

// DeleteWorkExperience removes one work experience.
func (c *Client) DeleteWorkExperience(ctx context.Context, profileID, experienceID string) (user User, err error) {
	err = c.doJSON(ctx, http.MethodDelete, subPath(profileID, "work-experiences", experienceID), nil, &user)
	return user, err
}

// SearchUsersBySkills lists profiles that carry any of the given skills.
func (c *Client) SearchUsersBySkills(ctx context.Context, skills []string) (users []User, err error) {
	query := url.Values{}
	query.Set("skills", strings.Join(skills, ","))
	err = c.doJSON(ctx, http.MethodGet, "/users/search/skills?"+query.Encode(), nil, &users)
	return users, err
}

// GetUsersByCompany lists profiles with a work experience at company.
func (c *Client) GetUsersByCompany(ctx context.Context, company string) (users []User, err error) {
	err = c.doJSON(ctx, http.MethodGet, "/users/company/"+url.PathEscape(company), nil, &users)
	return users, err
}

// GetResumeData fetches the stored resume metadata and parsed artifact.
func (c *Client) GetResumeData(ctx context.Context, identityKey string) (data ResumeData, err error) {
	err = c.doJSON(ctx, http.MethodGet, "/resume/"+url.PathEscape(identityKey), nil, &data)
	return data, err
}

// UploadResume sends a PDF to the parsing service and returns its extraction.
func (c *Client) UploadResume(ctx context.Context, identityKey, filename string, file io.Reader) (resp UploadResponse, err error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	var part io.Writer
	part, err = writer.CreateFormFile("resume", filename)
	if err != nil {
		err = errors.Wrap(err, "failed to create multipart file part")
		return resp, err
	}

	_, err = io.Copy(part, file)
	if err != nil {
		err = errors.Wrapf(err, "failed to read resume file: %s", filename)
		return resp, err
	}

	err = writer.WriteField("clerkUserId", identityKey)
	if err != nil {
		err = errors.Wrap(err, "failed to write identity field")
		return resp, err
	}

	err = writer.Close()
	if err != nil {
		err = errors.Wrap(err, "failed to finish multipart body")
		return resp, err
	}

	var respBody []byte
	respBody, err = c.send(ctx, http.MethodPost, "/resume/upload", body, writer.FormDataContentType())
	if err != nil {
		return resp, err
	}

	err = decode(respBody, &resp)
	return resp, err
}

// AutomateApplication asks the automation service to fill out the form at jobURL.
func (c *Client) AutomateApplication(ctx context.Context, identityKey, jobURL string) (resp AutomationResponse, err error) {
	req := AutomationRequest{IdentityKey: identityKey, JobURL: jobURL}
	err = c.doJSON(ctx, http.MethodPost, "/application/automate", req, &resp)
	return resp, err
}

// GetApplicationStatus fetches the state of an automation job.
func (c *Client) GetApplicationStatus(ctx context.Context, applicationID string) (status ApplicationStatus, err error) {
	err = c.doJSON(ctx, http.MethodGet, "/application/status/"+url.PathEscape(applicationID), nil, &status)
	return status, err
}

// doJSON sends payload as JSON (when non-nil) and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}) (err error) {
	var body io.Reader
	if payload != nil {
		var reqBody []byte
		reqBody, err = json.Marshal(payload)
		if err != nil {
			err = errors.Wrap(err, "failed to marshal request")
			return err
		}
		body = bytes.NewReader(reqBody)
	}

	var respBody []byte
	respBody, err = c.send(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}

	err = decode(respBody, out)
	return err
}

// send performs one request. Non-2xx responses become *RemoteError.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (respBody []byte, err error) {
	endpoint := c.baseURL + path

	var httpReq *http.Request
	httpReq, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return respBody, err
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()

	var resp *http.Response
	resp, err = c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		err = asTransportError(err, "HTTP request failed")
		return respBody, err
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		err = asTransportError(err, "failed to read response body")
		return respBody, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = newRemoteError(resp.StatusCode, respBody)
		return respBody, err
	}

	return respBody, err
}

// decode parses a 2xx body into out.
func decode(body []byte, out interface{}) (err error) {
	if out == nil {
		return err
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		err = asTransportError(err, "failed to parse response body")
		return err
	}

	return err
}

func subPath(profileID, collection, itemID string) (path string) {
	path = "/users/" + url.PathEscape(profileID) + "/" + collection
	if itemID != "" {
		path += "/" + url.PathEscape(itemID)
	}
	return path
}

func nonNil(values []string) (out []string) {
	out = values
	if out == nil {
		out = []string{}
	}
	return out
}
