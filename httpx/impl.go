package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/xerrors"
)

// client JSON HTTP 客户端实现（非导出）
type client struct {
	base    string
	timeout time.Duration
	httpc   *http.Client
	logger  clog.Logger

	tokenMu sync.RWMutex
	token   string
}

func newClient(cfg *Config, logger clog.Logger) *client {
	return &client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		httpc:   &http.Client{},
		logger:  logger,
	}
}

func (c *client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

func (c *client) Do(ctx context.Context, method, path string, body, out any) error {
	endpoint := method + " " + path

	// 调用方未设截止时间时套用配置超时
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return xerrors.Wrap(err, "httpx: marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return xerrors.Wrap(err, "httpx: build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.tokenMu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.tokenMu.RUnlock()

	resp, err := c.httpc.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return xerrors.Wrapf(ErrTimeout, "%s", endpoint)
		}
		return xerrors.Wrapf(err, "httpx: %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode, Endpoint: endpoint}
		// 尝试提取后端的结构化错误消息，失败则忽略
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			if json.Unmarshal(raw, &payload) == nil {
				if payload.Message != "" {
					se.Message = payload.Message
				} else {
					se.Message = payload.Error
				}
			}
		}
		c.logger.Debug("request failed",
			clog.String("endpoint", endpoint),
			clog.Int("status", resp.StatusCode))
		return se
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return xerrors.Wrapf(err, "httpx: decode response of %s", endpoint)
		}
	}
	return nil
}

func isTimeoutErr(err error) bool {
	if xerrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return xerrors.As(err, &ne) && ne.Timeout()
}
