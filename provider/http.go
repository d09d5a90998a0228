package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modelfile"
)

// DefaultURL is the address of a locally running model service.
const DefaultURL = "http://127.0.0.1:5000/"

// HTTP fetches models from the model service: POST {base}/{id}.
type HTTP struct {
	base   *url.URL
	client *http.Client
	log    *zap.Logger
}

// NewHTTP creates a client for the service at baseURL. A zero timeout means
// no client-side timeout beyond the request context.
func NewHTTP(baseURL string, timeout time.Duration, log *zap.Logger) (*HTTP, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("provider url %q: unsupported scheme", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTP{base: u, client: &http.Client{Timeout: timeout}, log: log}, nil
}

// FetchModel implements Provider.
func (h *HTTP) FetchModel(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		id = "1"
	}
	body, err := json.Marshal(NewRequest(mesh, mat))
	if err != nil {
		return nil, err
	}
	endpoint := h.base.ResolveReference(&url.URL{Path: url.PathEscape(id)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s from %s: %s", ErrStatus, resp.Status, endpoint, strings.TrimSpace(string(msg)))
	}
	m, err := modelfile.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch model %s: %w", id, err)
	}
	if m.ID == "" {
		m.ID = id
	}
	h.log.Debug("model fetched",
		zap.String("id", m.ID),
		zap.Int("modes", m.NumModes),
		zap.Int("vertices", m.NumVertices),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}
