// Package backend is the HTTP client for the answer service: questions
// in, scripted performances out, plus the explainer job and gesture
// classification endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/gesture"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.AnswerService     = (*Client)(nil)
	_ domain.ExplainerService  = (*Client)(nil)
	_ domain.GestureClassifier = (*Client)(nil)
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPTimeout sets the timeout for answer requests. Answers include
// transcription and script generation, so this is generous.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPollTimeout sets the timeout for explainer and gesture requests.
func WithPollTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.quick.Timeout = d }
}

// WithClassLevel sets the default class level sent with questions.
func WithClassLevel(level string) ClientOption {
	return func(c *Client) { c.classLevel = level }
}

// Client talks to the answer backend.
type Client struct {
	baseURL    string
	classLevel string
	http       *http.Client
	quick      *http.Client
	log        *logger.Logger
	now        func() time.Time
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		classLevel: "3",
		http:       &http.Client{Timeout: 90 * time.Second},
		quick:      &http.Client{Timeout: 5 * time.Second},
		log:        log,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ask posts a question to /process and decodes the performance. An
// answer whose payload carries an error string is returned as an error.
func (c *Client) Ask(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if len(q.Audio) > 0 {
		fw, err := mw.CreateFormFile("audio", "question.wav")
		if err != nil {
			return nil, fmt.Errorf("backend: create form file: %w", err)
		}
		if _, err := fw.Write(q.Audio); err != nil {
			return nil, fmt.Errorf("backend: write audio: %w", err)
		}
	}
	fields := map[string]string{
		"text":        strings.TrimSpace(q.Text),
		"language":    q.Language,
		"character":   string(q.Character),
		"class_level": firstNonEmpty(q.ClassLevel, c.classLevel),
	}
	for _, k := range []string{"text", "language", "character", "class_level"} {
		if fields[k] == "" {
			continue
		}
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("backend: write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", &body)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.log.Debug("backend: POST /process (%d bytes, audio=%v)", body.Len(), len(q.Audio) > 0)

	var out answerJSON
	if err := c.do(c.http, req, &out); err != nil {
		return nil, err
	}
	ans := out.domain()
	if ans.Error != "" {
		return nil, fmt.Errorf("backend: %s", ans.Error)
	}
	c.log.Debug("backend: answer lang=%s scenes=%d job=%q", ans.Language, len(ans.Scenes), ans.JobID)
	return ans, nil
}

// FetchExplainer polls GET /explainer?job_id=. A 404 is domain.ErrNotFound.
func (c *Client) FetchExplainer(ctx context.Context, jobID string) (*domain.ExplainerJob, error) {
	u := c.baseURL + "/explainer?" + url.Values{"job_id": {jobID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}

	var out jobJSON
	if err := c.do(c.quick, req, &out); err != nil {
		return nil, err
	}
	return &domain.ExplainerJob{
		ID:      jobID,
		Status:  domain.ParseJobStatus(strings.ToLower(out.Status)),
		Payload: out.Explainer.domain(),
		Error:   out.Error,
	}, nil
}

// Classify posts a JPEG frame to /detect-gesture as a data URL.
func (c *Client) Classify(ctx context.Context, frame []byte) (domain.GestureSample, error) {
	payload, err := json.Marshal(map[string]string{
		"frame": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return domain.GestureSample{}, fmt.Errorf("backend: marshal frame: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect-gesture", bytes.NewReader(payload))
	if err != nil {
		return domain.GestureSample{}, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out gesture.Result
	if err := c.do(c.quick, req, &out); err != nil {
		return domain.GestureSample{}, err
	}
	if out.Error != "" {
		return domain.GestureSample{}, fmt.Errorf("backend: classifier: %s", out.Error)
	}
	return out.Sample(c.now()), nil
}

// do sends req and decodes a JSON response into out. Transport errors
// wrap domain.ErrBackendUnreachable; 404 is domain.ErrNotFound.
func (c *Client) do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrBackendUnreachable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend: %s %s: %s\n%s", req.Method, req.URL.Path, resp.Status, truncate(string(respBody), 200))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("backend: unmarshal response: %w", err)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
