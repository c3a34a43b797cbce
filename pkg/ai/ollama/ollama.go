// Package ollama implements the ai generation contracts against a locally
// hosted Ollama server.
package ollama

import (
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// Client talks to one Ollama server. A weighted semaphore bounds concurrent
// requests so page-image batches cannot overload a local model.
type Client struct {
	visionModel string
	textModel   string

	reqLock *semaphore.Weighted

	baseURL *url.URL
	Client  *api.Client
}

// NewClientParams configures a Client.
type NewClientParams struct {
	VisionModel string
	TextModel   string

	BaseURL string

	MaxConcurrentRequests int64
}

// NewClient creates an Ollama-backed client. An empty BaseURL uses the
// Ollama default (http://localhost:11434).
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}
	if u == nil {
		u, _ = url.Parse("http://localhost:11434")
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 1
	}

	return &Client{
		visionModel: params.VisionModel,
		textModel:   params.TextModel,
		reqLock:     semaphore.NewWeighted(params.MaxConcurrentRequests),
		baseURL:     u,
		Client:      api.NewClient(u, http.DefaultClient),
	}, nil
}
