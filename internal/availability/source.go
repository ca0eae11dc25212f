package availability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Source supplies the raw availability document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NewSource picks a file or HTTP source from the configured location.
func NewSource(location string, client HTTPDoer) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPSource{URL: location, Client: client}
	}
	return FileSource{Path: location}
}

type FileSource struct {
	Path string
}

func (f FileSource) Fetch(context.Context) ([]byte, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPSource struct {
	URL    string
	Client HTTPDoer
}

func (h *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch availability document: status %d", res.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// standardize turns tolerated JSONC into strict JSON.
func standardize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty document")
	}
	return hujson.Standardize(raw)
}
