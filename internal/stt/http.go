package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"scriptflow/internal/services"
)

// HTTPEngine calls a transcription service over HTTP. The service accepts a
// multipart upload of one audio chunk and returns timed segments.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine builds an engine client for the given base URL.
func NewHTTPEngine(baseURL string, timeout time.Duration) (*HTTPEngine, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "stt", "engine", "engine_url is required", nil)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPEngine{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type engineResponse struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func (e *HTTPEngine) Transcribe(ctx context.Context, audioPath, language string) ([]Segment, error) {
	body, contentType, err := multipartBody(func(writer *multipart.Writer) error {
		if language != "" {
			if err := writer.WriteField("language", language); err != nil {
				return err
			}
		}
		return attachFile(writer, "audio", audioPath)
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "stt", "transcribe", "build request", err)
	}

	var decoded engineResponse
	if err := postWithRetry(ctx, e.client, e.baseURL+"/transcribe", contentType, body, &decoded); err != nil {
		return nil, err
	}

	segments := make([]Segment, len(decoded.Segments))
	for i, seg := range decoded.Segments {
		segments[i] = Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: secondsToDuration(seg.Start),
			End:   secondsToDuration(seg.End),
		}
	}
	return segments, nil
}

// HTTPVerifier calls a speaker verification service over HTTP.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier builds a verifier client for the given base URL.
func NewHTTPVerifier(baseURL string, timeout time.Duration) (*HTTPVerifier, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "stt", "verifier", "verifier_url is required", nil)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HTTPVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type verifierResponse struct {
	Similarity float64 `json:"similarity"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, reference, candidate AudioRange) (float64, error) {
	body, contentType, err := multipartBody(func(writer *multipart.Writer) error {
		if err := attachFile(writer, "reference", reference.Path); err != nil {
			return err
		}
		if err := attachFile(writer, "candidate", candidate.Path); err != nil {
			return err
		}
		fields := map[string]string{
			"reference_start": formatSeconds(reference.Start),
			"reference_end":   formatSeconds(reference.End),
			"candidate_start": formatSeconds(candidate.Start),
			"candidate_end":   formatSeconds(candidate.End),
		}
		for key, value := range fields {
			if err := writer.WriteField(key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "stt", "verify", "build request", err)
	}

	var decoded verifierResponse
	if err := postWithRetry(ctx, v.client, v.baseURL+"/verify", contentType, body, &decoded); err != nil {
		return 0, err
	}
	return decoded.Similarity, nil
}

func multipartBody(fill func(*multipart.Writer) error) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := fill(writer); err != nil {
		_ = writer.Close()
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

// postWithRetry posts body and decodes the JSON response. Server errors and
// transport failures retry with exponential backoff; client errors do not.
func postWithRetry(ctx context.Context, client *http.Client, url, contentType string, body []byte, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		payload, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("request rejected %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return services.Wrapf(services.ErrTransient, "stt", "request", err, "POST %s", url)
	}
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
