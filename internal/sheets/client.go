// Package sheets stores overtime entries in a Google Sheets spreadsheet
// through the Sheets v4 REST API.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4"
	scope          = "https://www.googleapis.com/auth/spreadsheets"
)

type Options struct {
	SpreadsheetID string
	Sheet         string
	BaseURL       string
	TotalFormula  bool
	HeaderTTL     time.Duration
}

type Client struct {
	opts       Options
	baseURL    string
	httpClient *http.Client
	header     *headerCache
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration
}

var _ entry.Store = (*Client)(nil)

// NewClient uses httpClient as is; it must already attach credentials.
func NewClient(httpClient *http.Client, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if opts.Sheet == "" {
		opts.Sheet = "Sheet1"
	}
	if opts.HeaderTTL == 0 {
		opts.HeaderTTL = 10 * time.Minute
	}
	return &Client{
		opts:       opts,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		header:     newHeaderCache(opts.HeaderTTL),
		logger:     logger,
		backoff:    backoff,
	}
}

// NewClientFromCredentials authenticates with a service account key file.
func NewClientFromCredentials(ctx context.Context, credentialsFile string, opts Options, logger *slog.Logger) (*Client, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("sheets credentials file not configured — set sheets.credentials_file or OTLOG_SHEETS_CREDENTIALS")
	}
	if opts.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is empty — set sheets.spreadsheet_id or OTLOG_SPREADSHEET_ID")
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Timeout = 30 * time.Second

	return NewClient(httpClient, opts, logger), nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	reqURL := c.baseURL + path
	c.logger.Debug("sheets API request", "method", method, "path", path)

	var resp *http.Response
	maxRetries := 3
	requestStart := time.Now()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var reqBody io.Reader
		if data != nil {
			reqBody = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("sending request: %w", err)
			}
			c.logger.Debug("API request transport error, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				c.logger.Error("API request failed after retries", "method", method, "path", path, "status", resp.StatusCode, "attempts", maxRetries+1, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("API returned status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.logger.Debug("API request retryable error", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("sheets API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	return respBody, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (c *Client) valuesPath(a1 string) string {
	return fmt.Sprintf("/spreadsheets/%s/values/%s", url.PathEscape(c.opts.SpreadsheetID), url.PathEscape(a1))
}

func (c *Client) getValues(ctx context.Context) ([][]string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.valuesPath(quoteSheet(c.opts.Sheet)), nil)
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}

	var vr valueRange
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("parsing values response: %w", err)
	}
	return vr.Values, nil
}

// Rows reads the whole sheet. The first row is the header; rows shorter
// than the header are padded with empty values.
func (c *Client) Rows(ctx context.Context) ([]report.Row, error) {
	values, err := c.getValues(ctx)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []report.Row{}, nil
	}

	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(h)
	}
	c.header.Set(header)

	rows := make([]report.Row, 0, len(values)-1)
	for _, vals := range values[1:] {
		row := make(report.Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(vals) {
				v = vals[i]
			}
			row[h] = v
		}
		rows = append(rows, row)
	}

	c.logger.Debug("read sheet rows", "sheet", c.opts.Sheet, "rows", len(rows))
	return rows, nil
}

func (c *Client) headerRow(ctx context.Context) ([]string, error) {
	if h := c.header.Get(); h != nil {
		return h, nil
	}

	values, err := c.getValues(ctx)
	if err != nil {
		return nil, err
	}
	if len(values) > 0 && len(values[0]) > 0 {
		c.header.Set(values[0])
		return values[0], nil
	}

	// Empty sheet: write our own header first.
	c.logger.Info("sheet has no header row, writing one", "sheet", c.opts.Sheet)
	if _, err := c.appendValues(ctx, entry.Headers); err != nil {
		return nil, fmt.Errorf("writing header row: %w", err)
	}
	c.header.Set(entry.Headers)
	return entry.Headers, nil
}

func (c *Client) appendValues(ctx context.Context, values []string) (*appendResponse, error) {
	params := url.Values{
		"valueInputOption": {"USER_ENTERED"},
		"insertDataOption": {"INSERT_ROWS"},
	}
	path := c.valuesPath(quoteSheet(c.opts.Sheet)) + ":append?" + params.Encode()

	data, err := c.doRequest(ctx, http.MethodPost, path, valueRange{
		MajorDimension: "ROWS",
		Values:         [][]string{values},
	})
	if err != nil {
		return nil, err
	}

	var resp appendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing append response: %w", err)
	}
	return &resp, nil
}

// Append writes e as a new row, laid out by the sheet's own header so
// columns may be in any order.
func (c *Client) Append(ctx context.Context, e entry.Entry) error {
	header, err := c.headerRow(ctx)
	if err != nil {
		return err
	}

	row := e.Row()
	values := make([]string, len(header))
	for i, h := range header {
		if v, ok := row[strings.TrimSpace(h)].(string); ok {
			values[i] = v
		}
	}

	resp, err := c.appendValues(ctx, values)
	if err != nil {
		// The header may have changed under us; re-read it next time.
		c.header.Invalidate()
		return fmt.Errorf("appending entry: %w", err)
	}
	c.logger.Info("appended entry", "id", e.ID, "agent", e.Agent, "range", resp.Updates.UpdatedRange)

	if !c.opts.TotalFormula {
		return nil
	}
	return c.writeTotalFormula(ctx, header, resp.Updates.UpdatedRange)
}

func (c *Client) writeTotalFormula(ctx context.Context, header []string, updatedRange string) error {
	rowNum, err := rowNumber(updatedRange)
	if err != nil {
		return err
	}
	from, to, total := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case entry.ColFrom:
			from = i
		case entry.ColTo:
			to = i
		case entry.ColTotal:
			total = i
		}
	}
	if from < 0 || to < 0 || total < 0 {
		c.header.Invalidate()
		return fmt.Errorf("sheet header is missing %q, %q or %q", entry.ColFrom, entry.ColTo, entry.ColTotal)
	}

	cell := fmt.Sprintf("%s!%s%d", quoteSheet(c.opts.Sheet), columnLetter(total), rowNum)
	path := c.valuesPath(cell) + "?" + url.Values{"valueInputOption": {"USER_ENTERED"}}.Encode()
	body := valueRange{
		Range:  cell,
		Values: [][]string{{TotalFormula(columnLetter(from), columnLetter(to), rowNum)}},
	}
	if _, err := c.doRequest(ctx, http.MethodPut, path, body); err != nil {
		return fmt.Errorf("writing total formula: %w", err)
	}
	return nil
}

// TotalFormula is the spreadsheet formula that renders To-From as
// "1 hr 33 min", wrapping past midnight.
func TotalFormula(fromCol, toCol string, row int) string {
	f := fmt.Sprintf("%s%d", fromCol, row)
	t := fmt.Sprintf("%s%d", toCol, row)
	return fmt.Sprintf(`=IF(OR(%s="",%s=""),"",TEXT(MOD(%s-%s,1),"h \h\r m \m\i\n"))`, f, t, t, f)
}

// rowNumber extracts the first row number from an A1 range such as
// "Sheet1!A5:J5".
func rowNumber(a1 string) (int, error) {
	cells := a1
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		cells = a1[i+1:]
	}
	first, _, _ := strings.Cut(cells, ":")
	digits := strings.TrimLeftFunc(first, func(r rune) bool { return r >= 'A' && r <= 'Z' })
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("no row number in range %q", a1)
	}
	return n, nil
}

// quoteSheet renders a sheet name for an A1 range, wrapping it in single
// quotes (with embedded quotes doubled) unless it is a plain identifier.
func quoteSheet(name string) string {
	plain := name != ""
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnLetter converts a zero-based column index to A1 letters.
func columnLetter(i int) string {
	var s []byte
	for i++; i > 0; i = (i - 1) / 26 {
		s = append([]byte{byte('A' + (i-1)%26)}, s...)
	}
	return string(s)
}
