package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 1 << 20

// endpoint POSTs requests to the inference URL and turns every outcome into
// either a usable Response or a *Failure.
type endpoint struct {
	url    string
	client *http.Client
}

func (e *endpoint) ask(ctx context.Context, req Request, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, &Failure{Kind: FailureNetwork, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Response{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail string
		if decoded, derr := DecodeResponse(data); derr == nil && decoded.Kind == KindFailure {
			detail = decoded.Text
		}
		return Response{}, classifyStatus(resp.StatusCode, detail)
	}

	decoded, err := DecodeResponse(data)
	if err != nil {
		return Response{}, &Failure{Kind: FailureMalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	switch decoded.Kind {
	case KindUnrecognized:
		return Response{}, &Failure{Kind: FailureMalformedResponse, StatusCode: resp.StatusCode}
	case KindFailure:
		return Response{}, &Failure{Kind: FailureRemote, StatusCode: resp.StatusCode, Detail: decoded.Text}
	}
	return decoded, nil
}
