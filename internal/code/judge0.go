package code

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the delay between status checks of a pending submission.
	DefaultPollInterval = time.Second

	defaultRequestTimeout = 30 * time.Second
	maxErrorBody          = 64 << 10
)

// Judge0Config holds the connection settings for a Judge0 CE instance.
// URL is the base URL of the Judge0 server (e.g. "https://judge0-ce.p.rapidapi.com").
// APIKey is required. When APIHost is set the key is sent as RapidAPI
// credentials, otherwise as X-Auth-Token for a self-hosted server.
// MaxPolls and MaxWait bound the poll loop; zero leaves that bound off.
type Judge0Config struct {
	URL            string
	APIKey         string
	APIHost        string
	PollInterval   time.Duration
	MaxPolls       int
	MaxWait        time.Duration
	RequestTimeout time.Duration
}

// Judge0Client runs code through the Judge0 CE REST API using its
// asynchronous submit/poll protocol.
type Judge0Client struct {
	url          string
	apiKey       string
	apiHost      string
	pollInterval time.Duration
	maxPolls     int
	maxWait      time.Duration
	client       *http.Client
	logger       *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Judge0Client.
type Option func(*Judge0Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Judge0Client) {
		c.client = hc
	}
}

// WithLogger sets the logger used for poll progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *Judge0Client) {
		c.logger = l
	}
}

// NewJudge0Client constructs a Judge0Client from the given config.
func NewJudge0Client(cfg Judge0Config, opts ...Option) *Judge0Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	c := &Judge0Client{
		url:          strings.TrimRight(cfg.URL, "/"),
		apiKey:       cfg.APIKey,
		apiHost:      cfg.APIHost,
		pollInterval: interval,
		maxPolls:     cfg.MaxPolls,
		maxWait:      cfg.MaxWait,
		client:       &http.Client{Timeout: timeout},
		logger:       zap.NewNop(),
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run submits the request and polls until Judge0 reports a terminal status.
// A compile or runtime failure of the program is a normal Result; only
// failures talking to Judge0 are returned as errors.
func (c *Judge0Client) Run(ctx context.Context, req Request) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	start := c.now()

	token, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	log := c.logger.With(zap.String("token", string(token)), zap.Int("language_id", req.LanguageID))
	log.Debug("submission created")

	for polls := 1; ; polls++ {
		state, err := c.Poll(ctx, token)
		if err != nil {
			return nil, err
		}
		switch s := state.(type) {
		case Terminal:
			log.Debug("submission finished",
				zap.Int("status", s.Result.Status.ID),
				zap.String("description", s.Result.Status.Description),
				zap.Int("polls", polls))
			res := s.Result
			return &res, nil
		case Pending:
			log.Debug("submission pending", zap.Int("status", s.Status.ID), zap.Int("polls", polls))
		}

		if c.maxPolls > 0 && polls >= c.maxPolls {
			return nil, &Error{
				Kind:    ErrTimeout,
				Op:      "run",
				Message: fmt.Sprintf("submission %s still pending after %d polls", token, polls),
			}
		}
		if c.maxWait > 0 && c.now().Add(c.pollInterval).Sub(start) > c.maxWait {
			return nil, &Error{
				Kind:    ErrTimeout,
				Op:      "run",
				Message: fmt.Sprintf("submission %s still pending after %s", token, c.maxWait),
			}
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, fmt.Errorf("judge0 run %s: %w", token, err)
		}
	}
}

// Submit creates a submission and returns its token without waiting for the
// result. Source code and stdin are base64-encoded in the request.
func (c *Judge0Client) Submit(ctx context.Context, req Request) (Token, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	body := map[string]interface{}{
		"source_code": base64.StdEncoding.EncodeToString([]byte(req.SourceCode)),
		"language_id": req.LanguageID,
	}
	if req.Stdin != "" {
		body["stdin"] = base64.StdEncoding.EncodeToString([]byte(req.Stdin))
	}
	query := url.Values{
		"base64_encoded": {"true"},
		"wait":           {"false"},
		"fields":         {"token"},
	}

	var out struct {
		Token Token `json:"token"`
	}
	if err := c.call(ctx, ErrSubmission, "submit", http.MethodPost, "/submissions", query, body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Kind: ErrSubmission, Op: "submit", Message: "response contained no token"}
	}
	return out.Token, nil
}

// Poll fetches the current state of a submission. Judge0 returns text fields
// base64-encoded; they are decoded before returning.
func (c *Judge0Client) Poll(ctx context.Context, token Token) (PollState, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	query := url.Values{
		"base64_encoded": {"true"},
		"fields":         {"*"},
	}

	var raw struct {
		Token         Token   `json:"token"`
		Stdout        *string `json:"stdout"`
		Stderr        *string `json:"stderr"`
		CompileOutput *string `json:"compile_output"`
		Message       *string `json:"message"`
		Status        *Status `json:"status"`
		Time          *string `json:"time"`
		Memory        *int    `json:"memory"`
		ExitCode      *int    `json:"exit_code"`
	}
	path := "/submissions/" + url.PathEscape(string(token))
	if err := c.call(ctx, ErrCommunication, "poll", http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	if raw.Status == nil {
		return nil, &Error{Kind: ErrCommunication, Op: "poll", Message: "response contained no status"}
	}
	if !raw.Status.Terminal() {
		return Pending{Status: *raw.Status}, nil
	}

	res := Result{
		Token:         raw.Token,
		Stdout:        decode64(raw.Stdout),
		Stderr:        decode64(raw.Stderr),
		CompileOutput: decode64(raw.CompileOutput),
		Message:       decode64(raw.Message),
		Status:        *raw.Status,
		Time:          raw.Time,
		Memory:        raw.Memory,
		ExitCode:      raw.ExitCode,
	}
	if res.Token == "" {
		res.Token = token
	}
	return Terminal{Result: res}, nil
}

// Languages lists the runtimes the Judge0 instance accepts.
func (c *Judge0Client) Languages(ctx context.Context) ([]Language, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	var out []Language
	if err := c.call(ctx, ErrCommunication, "languages", http.MethodGet, "/languages", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Judge0Client) call(ctx context.Context, kind error, op, method, path string, query url.Values, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: kind, Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		bodyReader = bytes.NewReader(b)
	}

	u := c.url + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return &Error{Kind: kind, Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("judge0 %s: %w", op, ctxErr)
		}
		return &Error{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Message: remoteMessage(resp)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: kind, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Judge0Client) authorize(req *http.Request) {
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
		return
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
}

// remoteMessage extracts Judge0's error text from a failed response. Judge0
// uses {"error": ...}, RapidAPI uses {"message": ...}, and validation errors
// come back as field maps which are returned verbatim.
func remoteMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if s := strings.TrimSpace(string(b)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

// decode64 decodes a base64 field, keeping the raw text if it is not valid base64.
func decode64(s *string) *string {
	if s == nil {
		return nil
	}
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(*s)
	dec, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return s
	}
	out := string(dec)
	return &out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
