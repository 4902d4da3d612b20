// Package exec calls the external code-execution service. The service is
// opaque to this process: source in, captured output back, nothing shared
// with room state.
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Request identifies one execution: language + version select the runtime,
// source is the program, stdin is fed to it.
type Request struct {
	Language string
	Version  string
	Source   string
	Stdin    string
}

// RunResult is the captured process result.
type RunResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   int    `json:"code"`
}

// Response mirrors the service's execute response; clients read Run.Output.
type Response struct {
	Language string    `json:"language"`
	Version  string    `json:"version"`
	Run      RunResult `json:"run"`
}

type executeBody struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
	Stdin    string        `json:"stdin,omitempty"`
}

type executeFile struct {
	Content string `json:"content"`
}

// Client is a thin HTTP client for the execution service.
type Client struct {
	base string
	hc   *http.Client
	log  *slog.Logger
}

// New builds a client for the service at baseURL. Timeout bounds the whole
// request; executions that run longer are the service's problem, not ours.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		base: baseURL,
		hc:   &http.Client{Timeout: timeout},
		log:  logger,
	}
}

// Run submits the source for execution and returns the parsed result.
func (c *Client) Run(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(executeBody{
		Language: req.Language,
		Version:  req.Version,
		Files:    []executeFile{{Content: req.Source}},
		Stdin:    req.Stdin,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v2/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, fmt.Errorf("execute: status %d: %s", httpResp.StatusCode, b)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("execute: decode: %w", err)
	}

	c.log.Debug("exec.done", "lang", req.Language, "dur", time.Since(start))
	return &resp, nil
}
