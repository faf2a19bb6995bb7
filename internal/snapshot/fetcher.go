// Package snapshot fetches static map images for cafe addresses from the
// MapQuest static map API and persists them keyed by cafe id.  The fetch
// is a soft side effect of cafe creation: failures are logged by the
// caller and never roll back the cafe.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.mapquestapi.com/staticmap/v5/map"

// Fetcher downloads static map images.  BaseURL and Dir are injectable so
// tests can point at a local server and a temp directory.
type Fetcher struct {
	APIKey  string
	Dir     string       // destination directory for <id>.jpg files
	BaseURL string       // defaults to the MapQuest static map endpoint
	Client  *http.Client // defaults to a client with a 5 second timeout
}

// NewFetcher returns a Fetcher writing into dir using the given API key.
func NewFetcher(apiKey, dir string) *Fetcher {
	return &Fetcher{
		APIKey:  apiKey,
		Dir:     dir,
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// MapURL builds the provider URL for a static map centered on the given
// street address, city and two-letter state.  Spaces are percent-encoded;
// the rest of the address is passed through the way the provider expects.
func (f *Fetcher) MapURL(address, city, state string) string {
	where := fmt.Sprintf("%s,%s,%s", address, city, state)
	u := fmt.Sprintf("%s?key=%s&center=%s&size=@2x&zoom=15&locations=%s",
		f.baseURL(), f.APIKey, where, where)
	return strings.ReplaceAll(u, " ", "%20")
}

// FetchAndStore downloads the static map for the address and writes it to
// <Dir>/<id>.jpg.  The write goes through a temp file and rename so a
// failed download never leaves a truncated image behind.
func (f *Fetcher) FetchAndStore(ctx context.Context, id uint64, address, city, state string) error {
	if f.APIKey == "" {
		return fmt.Errorf("map fetch: no API key configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.MapURL(address, city, state), nil)
	if err != nil {
		return err
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return fmt.Errorf("map fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("map fetch: provider returned %s", resp.Status)
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(f.Dir, fmt.Sprintf("%d.jpg", id))
	tmp, err := os.CreateTemp(f.Dir, "map-*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("map fetch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (f *Fetcher) baseURL() string {
	if f.BaseURL != "" {
		return f.BaseURL
	}
	return defaultBaseURL
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 5 * time.Second}
}
