package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
	"github.com/yanqian/cyclegpt/internal/domain/dashboard"
)

// Client talks to the prediction and chatbot endpoints on behalf of the dashboard.
type Client struct {
	predictBaseURL string
	chatURL        string
	httpClient     *http.Client
}

// NewClient builds a client. A nil httpClient uses one without a timeout so
// only the caller's context bounds a request.
func NewClient(predictBaseURL, chatURL string, httpClient *http.Client) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(predictBaseURL), "/")
	if base == "" {
		return nil, errors.New("predict base url cannot be empty")
	}
	chat := strings.TrimSpace(chatURL)
	if chat == "" {
		return nil, errors.New("chat url cannot be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{predictBaseURL: base, chatURL: chat, httpClient: httpClient}, nil
}

// FetchPrediction requests the forecast for userID.
func (c *Client) FetchPrediction(ctx context.Context, userID int64) (cycle.Prediction, error) {
	endpoint := fmt.Sprintf("%s/predict?user_id=%s", c.predictBaseURL, url.QueryEscape(strconv.FormatInt(userID, 10)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return cycle.Prediction{}, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cycle.Prediction{}, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return cycle.Prediction{}, fmt.Errorf("predict request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var out cycle.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return cycle.Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if out.PredictedNextCycle.IsZero() {
		return cycle.Prediction{}, errors.New("decode prediction: missing predicted_next_cycle")
	}
	return out, nil
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask posts question to the chatbot. The body is decoded whatever the status
// code, so an error envelope yields an empty reply rather than an error.
func (c *Client) Ask(ctx context.Context, question string) (dashboard.ChatReply, error) {
	payload, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return dashboard.ChatReply{}, fmt.Errorf("encode chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(payload))
	if err != nil {
		return dashboard.ChatReply{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dashboard.ChatReply{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeReply(resp.StatusCode, resp.Body)
}

// decodeReply reads the response field of any JSON body. A null body is an
// error; arrays and scalars decode to an empty reply.
func decodeReply(status int, body io.Reader) (dashboard.ChatReply, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return dashboard.ChatReply{}, fmt.Errorf("decode chat reply: status=%d: %w", status, err)
	}
	if string(raw) == "null" {
		return dashboard.ChatReply{}, fmt.Errorf("decode chat reply: status=%d: null body", status)
	}
	if raw[0] != '{' {
		return dashboard.ChatReply{}, nil
	}
	var fields struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return dashboard.ChatReply{}, fmt.Errorf("decode chat reply: status=%d: %w", status, err)
	}
	return dashboard.ChatReply{Response: responseText(fields.Response)}, nil
}

// responseText renders a response value for display; falsy values are empty.
func responseText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	switch string(raw) {
	case "", "null", "false", "0":
		return ""
	}
	return string(raw)
}
