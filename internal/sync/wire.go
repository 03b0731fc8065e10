package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpTimeout bounds a single gPodder API v2 request.
const httpTimeout = 30 * time.Second

// subscriptionDelta is the body of a GET .../subscriptions/{user}/{device}.json
// response, and also the shape POSTed back for a push.
type subscriptionDelta struct {
	Add       []string `json:"add"`
	Remove    []string `json:"remove"`
	Timestamp int64    `json:"timestamp"`
}

// actionPayload is one entry of the episodes endpoint's array body, in
// both directions.
type actionPayload struct {
	Podcast   string  `json:"podcast"`
	Episode   string  `json:"episode"`
	Action    string  `json:"action"`
	Timestamp string  `json:"timestamp"`
	Position  int     `json:"position,omitempty"`
	Total     int     `json:"total,omitempty"`
	Started   int     `json:"started,omitempty"`
	GUID      string  `json:"guid,omitempty"`
	Device    *string `json:"device,omitempty"`
}

type actionsResponse struct {
	Actions   []actionPayload `json:"actions"`
	Timestamp int64           `json:"timestamp"`
}

// wireClient issues gPodder API v2 calls. Every method takes the plaintext
// credentials explicitly rather than holding them, so Service stays the
// sole owner of where they're stored.
type wireClient struct {
	httpClient *http.Client
	baseURL    string // e.g. "https://gpodder.net", no trailing slash
}

func newWireClient(baseURL string, client *http.Client) *wireClient {
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}
	return &wireClient{httpClient: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (w *wireClient) do(ctx context.Context, method, path, username, password string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, newError(KindProtocol, "encode", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, reader)
	if err != nil {
		return nil, newError(KindProtocol, "build_request", err)
	}
	req.SetBasicAuth(username, password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindTransient, method+" "+path, err)
	}
	return resp, nil
}

func classifyStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(KindAuthFailed, op, fmt.Errorf("http %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return newError(KindTransient, op, fmt.Errorf("http %d", resp.StatusCode))
	default:
		return newError(KindProtocol, op, fmt.Errorf("http %d", resp.StatusCode))
	}
}

// PullSubscriptions fetches the subscription delta since sinceTimestamp.
func (w *wireClient) PullSubscriptions(ctx context.Context, username, password, device string, sinceTimestamp int64) (subscriptionDelta, error) {
	path := fmt.Sprintf("/api/2/subscriptions/%s/%s.json?since=%d", username, device, sinceTimestamp)
	resp, err := w.do(ctx, http.MethodGet, path, username, password, nil)
	if err != nil {
		return subscriptionDelta{}, err
	}
	defer resp.Body.Close()
	if err := classifyStatus("pull_subscriptions", resp); err != nil {
		return subscriptionDelta{}, err
	}
	var delta subscriptionDelta
	if err := json.NewDecoder(resp.Body).Decode(&delta); err != nil {
		return subscriptionDelta{}, newError(KindProtocol, "decode_subscriptions", err)
	}
	return delta, nil
}

// PushSubscriptions uploads additions/removals and returns the server's new
// timestamp.
func (w *wireClient) PushSubscriptions(ctx context.Context, username, password, device string, add, remove []string) (int64, error) {
	path := fmt.Sprintf("/api/2/subscriptions/%s/%s.json", username, device)
	body := subscriptionDelta{Add: add, Remove: remove}
	resp, err := w.do(ctx, http.MethodPost, path, username, password, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := classifyStatus("push_subscriptions", resp); err != nil {
		return 0, err
	}
	var result subscriptionDelta
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, newError(KindProtocol, "decode_push_subscriptions", err)
	}
	return result.Timestamp, nil
}

// PushActions uploads pending episode actions and returns the server's new
// actions timestamp.
func (w *wireClient) PushActions(ctx context.Context, username, password string, actions []actionPayload) (int64, error) {
	path := fmt.Sprintf("/api/2/episodes/%s.json", username)
	resp, err := w.do(ctx, http.MethodPost, path, username, password, actions)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := classifyStatus("push_actions", resp); err != nil {
		return 0, err
	}
	var result actionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, newError(KindProtocol, "decode_push_actions", err)
	}
	return result.Timestamp, nil
}
