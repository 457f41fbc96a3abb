package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

const defaultModelTimeout = 30 * time.Second

// HTTPModel forwards permitted invocations to an upstream completion
// endpoint. The upstream never sees tenant or user identifiers beyond the
// job ID needed for correlation.
type HTTPModel struct {
	baseURL string
	client  *http.Client
}

func NewHTTPModel(baseURL string) *HTTPModel {
	return &HTTPModel{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultModelTimeout},
	}
}

type modelRequestBody struct {
	JobID     string `json:"job_id"`
	Treatment string `json:"treatment"`
	Prompt    string `json:"prompt"`
}

type modelResponseBody struct {
	Output string `json:"output"`
	Model  string `json:"model"`
}

func (m *HTTPModel) Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	body, err := json.Marshal(modelRequestBody{
		JobID:     req.JobID,
		Treatment: string(req.Treatment),
		Prompt:    req.Prompt,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode model request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build model request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "model backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("model backend returned status %d", resp.StatusCode))
	}

	var out modelResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode model response")
	}
	return &ModelResponse{Output: out.Output, Model: out.Model}, nil
}

// EchoModel is the development backend used when no upstream is configured.
type EchoModel struct{}

func (EchoModel) Invoke(_ context.Context, req ModelRequest) (*ModelResponse, error) {
	return &ModelResponse{
		Output: "echo: " + req.Prompt,
		Model:  "echo-dev",
	}, nil
}
