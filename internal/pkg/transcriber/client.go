package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	tapi "github.com/dictamed/scriba/internal/pkg/transcriber/api"
	"github.com/dictamed/scriba/internal/pkg/utils"
)

// MaxAudioSize is the hard limit for one transcription payload.
// Larger payloads are rejected locally before any network call
const MaxAudioSize = 20 << 20

// instructionPrompt is the fixed contract sent to the remote model
const instructionPrompt = "Transcribe the audio verbatim. " +
	"Interpret spoken formatting commands as punctuation, not literal words. " +
	"Expand contractions to their formal form, except possessive 's. " +
	"Remove conversational fillers. " +
	"Preserve and correct medical terminology and drug dosages. " +
	"Return only the clean transcript body."

// emptyTranscript is returned when the service produces no content
const emptyTranscript = "No transcript produced"

// Client communicates with the transcription service
type Client struct {
	httpclient    *http.Client
	transcribeURL string
	key           string
	timeout       time.Duration
	backoff       func() backoff.BackOff
}

// NewClient creates a transcriber client
func NewClient(transcribeURL, key string) (*Client, error) {
	res := Client{}
	if transcribeURL == "" {
		return nil, fmt.Errorf("no transcribeURL")
	}
	res.transcribeURL = transcribeURL
	res.key = key
	res.timeout = time.Minute * 10
	res.httpclient = asrHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the transcription service and returns raw transcript text.
// Size limit and authentication failures are classified via the utils error types
func (sp *Client) Transcribe(ctx context.Context, data *tapi.TranscribeData) (string, error) {
	if len(data.Audio) == 0 {
		return "", fmt.Errorf("no audio")
	}
	if len(data.Audio) > MaxAudioSize {
		return "", utils.NewErrSizeLimit(int64(len(data.Audio)), MaxAudioSize)
	}

	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		body, contentType, err := makeBody(data)
		if err != nil {
			return "", false, err
		}
		req, err := http.NewRequest(http.MethodPost, sp.transcribeURL, body)
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", contentType)
		if sp.key != "" {
			req.Header.Set("Authorization", "Bearer "+sp.key)
		}

		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", false, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), utils.ErrUnauthenticated)
		}
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData transcribeResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", false, fmt.Errorf("can't decode response: %w", err)
		}
		if respData.Text == "" {
			return emptyTranscript, false, nil
		}
		return respData.Text, false, nil
	}, sp.backoff())
}

func makeBody(data *tapi.TranscribeData) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio")
	if err != nil {
		return nil, "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err := part.Write(data.Audio); err != nil {
		return nil, "", fmt.Errorf("can't add file content to request: %w", err)
	}
	prompt := instructionPrompt
	if data.StyleContext != "" {
		prompt = prompt + "\n\nStyle hints from past corrections:\n" + data.StyleContext
	}
	if err := writer.WriteField("mime", data.Mime); err != nil {
		return nil, "", fmt.Errorf("can't add param: %w", err)
	}
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, "", fmt.Errorf("can't add param: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("can't close writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
