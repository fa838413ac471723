package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// HTTPMerger calls the document service to merge a template
type HTTPMerger struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
}

// NewHTTPMerger creates a document service client
func NewHTTPMerger(url string) (*HTTPMerger, error) {
	if url == "" {
		return nil, fmt.Errorf("no merge URL")
	}
	return &HTTPMerger{httpclient: http.DefaultClient, url: url, timeout: time.Second * 30}, nil
}

type mergeRequest struct {
	Template   string            `json:"template"`
	Transcript string            `json:"transcript"`
	Fields     map[string]string `json:"fields,omitempty"`
}

type mergeResponse struct {
	Document string `json:"document"`
}

// MergeTemplate merges the transcript and fields into the named template
func (sp *HTTPMerger) MergeTemplate(ctx context.Context, template string, transcript string, fields map[string]string) (string, error) {
	b, err := json.Marshal(mergeRequest{Template: template, Transcript: transcript, Fields: fields})
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, sp.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	req = req.WithContext(ctx)
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData mergeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't decode response: %w", err)
	}
	if respData.Document == "" {
		return "", fmt.Errorf("empty document returned")
	}
	return respData.Document, nil
}
