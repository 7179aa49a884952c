package intel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// #region transport
// Transport opens a raw event stream for a messages request.
type Transport interface {
	Open(ctx context.Context, params sdk.MessageNewParams) (io.ReadCloser, error)
}

// SDKTransport posts through the Anthropic SDK client and hands back the
// unparsed response body.
type SDKTransport struct {
	client sdk.Client
}

// NewSDKTransport builds a transport for apiKey. An empty baseURL keeps the
// SDK default.
func NewSDKTransport(apiKey, baseURL string, opts ...option.RequestOption) *SDKTransport {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &SDKTransport{client: sdk.NewClient(all...)}
}

// Open issues a streaming messages request. Non-2xx responses surface as SDK
// errors before any body is returned.
func (t *SDKTransport) Open(ctx context.Context, params sdk.MessageNewParams) (io.ReadCloser, error) {
	var resp *http.Response
	err := t.client.Post(ctx, "v1/messages", params, &resp, option.WithJSONSet("stream", true))
	if err != nil {
		return nil, fmt.Errorf("messages stream: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return nil, errors.New("messages stream: empty response")
	}
	return resp.Body, nil
}

// #endregion transport
