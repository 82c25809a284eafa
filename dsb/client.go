package dsb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schooldashboard/dsbplan/config"
	"github.com/schooldashboard/dsbplan/utils"
)

const (
	DefaultAppVersion = "2.5.9"
	DefaultDevice     = "Nexus 4"
	DefaultOsVersion  = "27 8.1.0"
	DefaultLanguage   = "de"
	DefaultBundleID   = "de.heinekingmedia.dsbmobile"

	dataTypeRequest = 1
	maxResponseSize = 8 << 20
)

// Options configures a Client.
type Options struct {
	Endpoint       string
	Username       string
	Password       string
	AppVersion     string
	Device         string
	OsVersion      string
	Language       string
	BundleID       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// HTTPClient overrides the timeout-bounded client built from the options.
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

// Client performs the DSBmobile GetData round trip.
// It does not retry; callers decide when to try again.
type Client struct {
	opts       Options
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a new DSBmobile client
func NewClient(opts Options) *Client {
	if opts.AppVersion == "" {
		opts.AppVersion = DefaultAppVersion
	}
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}
	if opts.OsVersion == "" {
		opts.OsVersion = DefaultOsVersion
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.BundleID == "" {
		opts.BundleID = DefaultBundleID
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = utils.NewHTTPClient(opts.ConnectTimeout, opts.ReadTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		opts:       opts,
		httpClient: httpClient,
		logger:     logger.Named("dsb"),
		now:        now,
	}
}

// NewClientFromConfig builds a client from the dsb config section.
func NewClientFromConfig(cfg config.DSBConfig, logger *zap.Logger) *Client {
	return NewClient(Options{
		Endpoint:       cfg.Endpoint,
		Username:       cfg.Username,
		Password:       cfg.Password,
		AppVersion:     cfg.AppVersion,
		Device:         cfg.Device,
		OsVersion:      cfg.OsVersion,
		Language:       cfg.Language,
		BundleID:       cfg.BundleID,
		ConnectTimeout: utils.Millis(cfg.ConnectTimeoutMS, 5*time.Second),
		ReadTimeout:    utils.Millis(cfg.ReadTimeoutMS, 10*time.Second),
		Logger:         logger,
	})
}

// GetTimeTables fetches the menu tree and flattens the plan pages.
func (c *Client) GetTimeTables(ctx context.Context) ([]TimeTable, error) {
	resp, err := c.Pull(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := resp.TimeTables()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched timetables", zap.Int("count", len(tables)))
	return tables, nil
}

// GetNews fetches the menu tree and flattens the news section.
func (c *Client) GetNews(ctx context.Context) ([]News, error) {
	resp, err := c.Pull(ctx)
	if err != nil {
		return nil, err
	}
	news, err := resp.News()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched news", zap.Int("count", len(news)))
	return news, nil
}

// Pull performs one request/response round trip and returns the decoded
// result document. A nonzero Resultcode is reported as ErrProtocol.
func (c *Client) Pull(ctx context.Context) (*Response, error) {
	body, err := c.buildRequest()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: post %s: %w", ErrTransport, c.opts.Endpoint, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrTransport, httpResp.StatusCode, c.opts.Endpoint)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("pulled menu tree",
		zap.Int("items", len(resp.ResultMenuItems)),
		zap.Duration("elapsed", c.now().Sub(start)))
	return resp, nil
}

func (c *Client) buildRequest() ([]byte, error) {
	now := c.now()
	args := requestArgs{
		AppID:      uuid.NewString(),
		PushID:     "",
		UserID:     c.opts.Username,
		UserPw:     c.opts.Password,
		AppVersion: c.opts.AppVersion,
		Device:     c.opts.Device,
		OsVersion:  c.opts.OsVersion,
		Language:   c.opts.Language,
		Date:       utils.FormatRequestTime(now),
		LastUpdate: utils.FormatRequestTime(now),
		BundleID:   c.opts.BundleID,
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrProtocol, err)
	}
	data, err := Encode(argsJSON)
	if err != nil {
		return nil, err
	}
	return json.Marshal(request{Req: requestData{Data: data, DataType: dataTypeRequest}})
}

func decodeResponse(raw []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrProtocol, err)
	}
	if env.D == nil || strings.TrimSpace(*env.D) == "" {
		return nil, fmt.Errorf("%w: envelope has no payload", ErrProtocol)
	}
	payload, err := Decode(*env.D)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: result document: %v", ErrProtocol, err)
	}
	if resp.ResultCode != 0 {
		return nil, fmt.Errorf("%w: result code %d: %s", ErrProtocol, resp.ResultCode, resp.ResultStatusInfo)
	}
	return &resp, nil
}
