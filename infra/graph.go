package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/entity"
)

// Publish pipeline stages. A *PublishError names the stage it died in so the
// scheduler can record which of the three remote steps failed.
const (
	StageCreate     = "create"
	StageProcessing = "processing"
	StageTimeout    = "timeout"
	StagePublish    = "publish"
)

// Container status codes returned by the Graph API readiness poll.
const (
	containerStatusInProgress = "IN_PROGRESS"
	containerStatusFinished   = "FINISHED"
	containerStatusError      = "ERROR"
)

// Graph API error code for an expired or revoked access token.
const graphCodeInvalidToken = 190

// GraphAPIError is the error object the Graph API nests under "error" in
// failure responses.
type GraphAPIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

// PublishError is the single typed failure of one publish attempt. It keeps
// the raw remote payload for diagnostics and the parsed Graph error when the
// body was a recognizable API error.
type PublishError struct {
	Stage      string
	StatusCode int
	Message    string
	Payload    json.RawMessage
	Remote     *GraphAPIError
}

func (e *PublishError) Error() string {
	switch e.Stage {
	case StageCreate:
		return "create media container: " + e.Message
	case StageProcessing:
		return "media container processing: " + e.Message
	case StageTimeout:
		return "media container readiness: " + e.Message
	case StagePublish:
		return "publish media container: " + e.Message
	}
	return e.Message
}

// TokenExpired reports whether the remote error means the account's stored
// access token is no longer usable and must be rotated.
func (e *PublishError) TokenExpired() bool {
	return e.Remote != nil && e.Remote.Code == graphCodeInvalidToken
}

// GraphClient drives the Instagram Graph API three-step publish protocol:
// create a media container, poll it until the remote side finished
// processing, then publish it.
type GraphClient struct {
	BaseURL      string
	APIVersion   string
	PollInterval time.Duration
	PollTimeout  time.Duration
	HTTPClient   *http.Client
}

func InitGraphClient(cfg *config.EnvConfig) *GraphClient {
	return &GraphClient{
		BaseURL:      cfg.Instagram.GraphAPIBase,
		APIVersion:   cfg.Instagram.APIVersion,
		PollInterval: cfg.Instagram.PollInterval,
		PollTimeout:  cfg.Instagram.PollTimeout,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish runs the full three-step sequence for one job and returns the
// resulting external media id. Steps run strictly in order; the first
// failure aborts the attempt. No step is retried here.
func (g *GraphClient) Publish(ctx context.Context, acc config.AccountConfig, job *entity.PostJob) (string, error) {
	creationID, err := g.CreateContainer(ctx, acc.IGUserID, acc.PageAccessToken, job)
	if err != nil {
		return "", err
	}

	if err := g.WaitUntilReady(ctx, creationID, acc.PageAccessToken); err != nil {
		return "", err
	}

	return g.PublishContainer(ctx, acc.IGUserID, creationID, acc.PageAccessToken)
}

// CreateContainer submits the media URL and caption and returns the
// creation id of the server-side container.
func (g *GraphClient) CreateContainer(ctx context.Context, igUserID, token string, job *entity.PostJob) (string, error) {
	params := url.Values{}
	params.Set("caption", job.Caption)
	params.Set("access_token", token)
	if job.MediaType == entity.MediaTypeVideo {
		params.Set("video_url", job.MediaURL)
		params.Set("media_type", "REELS")
	} else {
		params.Set("image_url", job.MediaURL)
	}

	status, body, err := g.do(ctx, http.MethodPost, fmt.Sprintf("%s/media", igUserID), params)
	if err != nil {
		return "", &PublishError{Stage: StageCreate, Message: err.Error()}
	}
	if status < 200 || status >= 300 {
		return "", newRemoteError(StageCreate, status, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", &PublishError{
			Stage:      StageCreate,
			StatusCode: status,
			Message:    "response carried no container id",
			Payload:    json.RawMessage(body),
		}
	}
	return out.ID, nil
}

// WaitUntilReady polls the container status until FINISHED, ERROR or the
// poll timeout. Video and large-image ingestion is asynchronous on the
// remote side; publishing before FINISHED is rejected.
func (g *GraphClient) WaitUntilReady(ctx context.Context, creationID, token string) error {
	params := url.Values{}
	params.Set("fields", "status_code,id")
	params.Set("access_token", token)

	deadline := time.Now().Add(g.PollTimeout)
	ticker := time.NewTicker(g.PollInterval)
	defer ticker.Stop()

	for {
		status, body, err := g.do(ctx, http.MethodGet, creationID, params)
		if err != nil {
			return &PublishError{Stage: StageProcessing, Message: err.Error()}
		}
		if status < 200 || status >= 300 {
			return newRemoteError(StageProcessing, status, body)
		}

		var out struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return &PublishError{
				Stage:      StageProcessing,
				StatusCode: status,
				Message:    "unreadable container status response",
				Payload:    json.RawMessage(body),
			}
		}

		switch out.StatusCode {
		case containerStatusFinished:
			return nil
		case containerStatusError:
			return &PublishError{
				Stage:      StageProcessing,
				StatusCode: status,
				Message:    "remote media processing reported ERROR",
				Payload:    json.RawMessage(body),
			}
		}

		if time.Now().After(deadline) {
			return &PublishError{
				Stage:   StageTimeout,
				Message: fmt.Sprintf("container %s not ready after %s", creationID, g.PollTimeout),
			}
		}

		select {
		case <-ctx.Done():
			return &PublishError{Stage: StageTimeout, Message: ctx.Err().Error()}
		case <-ticker.C:
		}
	}
}

// PublishContainer publishes a FINISHED container and returns the id of the
// resulting post.
func (g *GraphClient) PublishContainer(ctx context.Context, igUserID, creationID, token string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", creationID)
	params.Set("access_token", token)

	status, body, err := g.do(ctx, http.MethodPost, fmt.Sprintf("%s/media_publish", igUserID), params)
	if err != nil {
		return "", &PublishError{Stage: StagePublish, Message: err.Error()}
	}
	if status < 200 || status >= 300 {
		return "", newRemoteError(StagePublish, status, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", &PublishError{
			Stage:      StagePublish,
			StatusCode: status,
			Message:    "response carried no media id",
			Payload:    json.RawMessage(body),
		}
	}
	return out.ID, nil
}

func (g *GraphClient) do(ctx context.Context, method, endpoint string, params url.Values) (int, []byte, error) {
	reqURL := fmt.Sprintf("%s/%s/%s?%s", g.BaseURL, g.APIVersion, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("graph api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read graph api response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func newRemoteError(stage string, status int, body []byte) *PublishError {
	perr := &PublishError{
		Stage:      stage,
		StatusCode: status,
		Message:    fmt.Sprintf("graph api returned %d: %s", status, body),
		Payload:    json.RawMessage(body),
	}

	var wrapped struct {
		Error *GraphAPIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil {
		perr.Remote = wrapped.Error
		if wrapped.Error.Message != "" {
			perr.Message = fmt.Sprintf("graph api returned %d: %s (code %d)", status, wrapped.Error.Message, wrapped.Error.Code)
		}
	}
	return perr
}
