// Package sheets talks to the spreadsheet web app that stores submissions and
// the teacher/team directory.
package sheets

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

	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/metrics"
	"github.com/soaringjerry/teacheval/internal/models"
)

const (
	actionTeachers = "getTeachers"
	actionTeams    = "getTeams"
)

// ErrRejected is returned when the web app answers an append without
// {"result":"success"}.
var ErrRejected = errors.New("sheets: append rejected")

// Client calls the spreadsheet web app. GET without an action lists every
// submission row; POST appends one row.
type Client struct {
	baseURL string
	http    *http.Client
	loc     *time.Location
	log     logging.Logger
	now     func() time.Time
}

// NewClient builds a client. Row dates written without a zone are read in loc.
func NewClient(baseURL string, timeout time.Duration, loc *time.Location, log logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		loc:     loc,
		log:     log,
		now:     time.Now,
	}
}

func (c *Client) get(ctx context.Context, action string, out interface{}) error {
	u := c.baseURL
	if action != "" {
		parsed, err := url.Parse(c.baseURL)
		if err != nil {
			return fmt.Errorf("sheets: parse url: %w", err)
		}
		q := parsed.Query()
		q.Set("action", action)
		parsed.RawQuery = q.Encode()
		u = parsed.String()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sheets: %s: %w", req.Method, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheets: %s: status %d: %s", req.Method, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sheets: decode response: %w", err)
	}
	return nil
}

// ListRows returns the raw submission rows keyed by header name.
func (c *Client) ListRows(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := c.get(ctx, "", &rows)
	metrics.ObserveStore("list_rows", err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListSubmissions fetches every row and adapts it into a Submission.
// Malformed cells are defaulted and logged, never fatal.
func (c *Client) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	rows, err := c.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeRows(rows, c.now(), c.loc, c.log), nil
}

type appendPayload struct {
	models.Submission
	SheetName string `json:"sheetName"`
}

// AppendSubmission posts one submission to the named sheet.
func (c *Client) AppendSubmission(ctx context.Context, sheetName string, sub models.Submission) error {
	err := c.append(ctx, sheetName, sub)
	metrics.ObserveStore("append_row", err)
	return err
}

func (c *Client) append(ctx context.Context, sheetName string, sub models.Submission) error {
	body, err := json.Marshal(appendPayload{Submission: sub, SheetName: sheetName})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	var res struct {
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	if err := c.do(req, &res); err != nil {
		return err
	}
	if res.Result != "success" {
		if res.Error != "" {
			return fmt.Errorf("%w: %s", ErrRejected, res.Error)
		}
		return ErrRejected
	}
	return nil
}

// ListTeachers reads the "Teachers" sheet.
func (c *Client) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	var raw []interface{}
	err := c.get(ctx, actionTeachers, &raw)
	metrics.ObserveStore("list_teachers", err)
	if err != nil {
		return nil, err
	}
	return DecodeTeachers(raw), nil
}

// ListTeams reads the "Teams" sheet.
func (c *Client) ListTeams(ctx context.Context) ([]string, error) {
	var raw []interface{}
	err := c.get(ctx, actionTeams, &raw)
	metrics.ObserveStore("list_teams", err)
	if err != nil {
		return nil, err
	}
	return DecodeTeams(raw), nil
}
