package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeduel/internal/common"
	"codeduel/internal/platform/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrJudgeUnavailable means the judge could not be reached after all retries.
	ErrJudgeUnavailable = fmt.Errorf("judge unavailable: %w", common.ErrServiceUnavailable)
	// ErrJudgeTimeout means no terminal status was observed before the deadline.
	ErrJudgeTimeout = errors.New("judge timeout: no terminal status before deadline")
	// ErrJudgeRejected is a non-retryable 4xx answer, e.g. an unknown language id.
	ErrJudgeRejected = errors.New("judge rejected the request")

	errStillRunning = errors.New("submission still in queue or processing")
)

type Config struct {
	BaseURL          string
	APIKey           string
	APIHost          string
	Wait             bool
	RequestTimeout   time.Duration
	MaxRetries       int
	PollInterval     time.Duration
	MaxPollInterval  time.Duration
	MaxPollAttempts  int
	Deadline         time.Duration
	AllowedLanguages []int
	LanguageCacheTTL time.Duration
}

// Client talks to a Judge0-compatible API. It holds no per-submission state
// and is safe for concurrent use.
type Client struct {
	cfg       Config
	http      *http.Client
	allowed   map[int]bool
	languages *expirable.LRU[string, []Language]
	log       *log.Entry
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	allowed := make(map[int]bool, len(cfg.AllowedLanguages))
	for _, id := range cfg.AllowedLanguages {
		allowed[id] = true
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 15 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = cfg.Deadline
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = cfg.PollInterval
	}
	ttl := cfg.LanguageCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		cfg:       cfg,
		http:      httpClient,
		allowed:   allowed,
		languages: expirable.NewLRU[string, []Language](1, nil, ttl),
		log:       log.WithFields(log.Fields{"from": "judge0"}),
	}
}

// Execute runs one program against one stdin and returns its terminal result.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := c.execute(ctx, req)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrJudgeTimeout):
		outcome = "timeout"
	case errors.Is(err, ErrJudgeUnavailable):
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	metrics.JudgeRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.JudgeErrorsTotal.WithLabelValues(outcome).Inc()
	}
	return res, err
}

func (c *Client) execute(parent context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.Deadline)
	defer cancel()

	body, err := json.Marshal(submissionBody{SourceCode: req.SourceCode, LanguageID: req.LanguageID, Stdin: req.Stdin})
	if err != nil {
		return nil, fmt.Errorf("encoding judge submission: %w", err)
	}

	q := url.Values{}
	q.Set("base64_encoded", "false")
	q.Set("wait", fmt.Sprintf("%t", c.cfg.Wait))

	var created Result
	if err := c.doJSON(ctx, http.MethodPost, "/submissions?"+q.Encode(), body, &created); err != nil {
		return nil, c.classify(parent, ctx, err)
	}
	if c.cfg.Wait && created.Status.Terminal() {
		return &created, nil
	}
	if created.Token == "" {
		return nil, fmt.Errorf("%w: judge returned no token", ErrJudgeUnavailable)
	}

	res, err := c.poll(ctx, created.Token)
	if err != nil {
		return nil, c.classify(parent, ctx, err)
	}
	return res, nil
}

func (c *Client) poll(ctx context.Context, token string) (*Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.PollInterval
	b.MaxInterval = c.cfg.MaxPollInterval
	b.MaxElapsedTime = c.cfg.Deadline

	path := "/submissions/" + url.PathEscape(token) + "?base64_encoded=false&fields=*"
	var result *Result
	err := backoff.Retry(func() error {
		var r Result
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &r); err != nil {
			return backoff.Permanent(err)
		}
		if !r.Status.Terminal() {
			return errStillRunning
		}
		r.Token = token
		result = &r
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxPollAttempts)), ctx))
	if err != nil {
		if errors.Is(err, errStillRunning) {
			return nil, ErrJudgeTimeout
		}
		return nil, err
	}
	return result, nil
}

// classify turns deadline expiry into ErrJudgeTimeout while keeping caller
// cancellation visible as such.
func (c *Client) classify(parent, ctx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return ErrJudgeTimeout
	}
	return err
}

// doJSON performs one API call, retrying transport failures, 5xx and 429
// with exponential backoff up to MaxRetries.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
			req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.log.WithError(err).WithField("attempt", attempt).Warn("judge request failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			c.log.WithFields(log.Fields{"status": resp.StatusCode, "attempt": attempt}).Warn("judge answered with retryable status")
			return fmt.Errorf("judge responded with status %d", resp.StatusCode)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrJudgeRejected, resp.StatusCode, strings.TrimSpace(string(snippet))))
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding judge response: %w", err)
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx))

	if err == nil {
		return nil
	}
	if errors.Is(err, ErrJudgeRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
}

// Languages lists the judge's languages restricted to the allowed ids.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	if cached, ok := c.languages.Get("all"); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Deadline)
	defer cancel()

	var all []Language
	if err := c.doJSON(ctx, http.MethodGet, "/languages", nil, &all); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrJudgeUnavailable
		}
		return nil, err
	}

	filtered := make([]Language, 0, len(c.allowed))
	for _, l := range all {
		if len(c.allowed) == 0 || c.allowed[l.ID] {
			filtered = append(filtered, l)
		}
	}
	c.languages.Add("all", filtered)
	return filtered, nil
}

// LanguageAllowed reports whether id may be submitted. An empty allow list permits all.
func (c *Client) LanguageAllowed(id int) bool {
	return len(c.allowed) == 0 || c.allowed[id]
}
