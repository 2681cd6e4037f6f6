package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/jonathan/site-ingest/internal/schemas"
	"github.com/jonathan/site-ingest/internal/types"
	rootschemas "github.com/jonathan/site-ingest/schemas"
)

// Files written by FileStore.
const (
	SitesFile      = "sites.json"
	PagesFile      = "pages.json"
	ChunksFile     = "chunks.json"
	FailedURLsFile = "failed_urls.json"
)

type filePage struct {
	ID     int64 `json:"id"`
	SiteID int64 `json:"site_id"`
	types.Page
	ScrapedAt time.Time `json:"scraped_at"`
}

type fileChunk struct {
	PageID int64 `json:"page_id"`
	types.ContentChunk
	Embedding []float32 `json:"embedding,omitempty"`
}

// FileStore is the file persistence strategy. Every write is committed to
// disk before it returns: the affected JSON documents are validated against
// the embedded JSON Schemas and replaced through a temp file and rename.
// chunks.json is written before pages.json, so a page listed in pages.json
// always has its chunks on disk.
type FileStore struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	sites  []types.Site
	pages  []filePage
	chunks map[int64][]fileChunk
	failed []types.FailedURL
}

// OpenFileStore creates a store rooted at dir, creating the directory and
// loading any documents a previous run left there.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	s := &FileStore{dir: dir, now: time.Now, chunks: make(map[int64][]fileChunk)}

	if err := s.load(SitesFile, rootschemas.Site, &s.sites); err != nil {
		return nil, err
	}
	if err := s.load(PagesFile, rootschemas.Page, &s.pages); err != nil {
		return nil, err
	}
	var chunks []fileChunk
	if err := s.load(ChunksFile, rootschemas.Chunk, &chunks); err != nil {
		return nil, err
	}
	for _, c := range chunks {
		c.ContentChunk.Embedding = c.Embedding
		s.chunks[c.PageID] = append(s.chunks[c.PageID], c)
	}
	if err := s.load(FailedURLsFile, rootschemas.FailedURL, &s.failed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load(name, schema string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := schemas.ValidateJSONString(schema, string(data)); err != nil {
		return fmt.Errorf("invalid %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Dir returns the output directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// -----------------------------------------------------------------------------
// Site Methods
// -----------------------------------------------------------------------------

// UpsertSite returns the site for baseURL, creating it on first use.
func (s *FileStore) UpsertSite(_ context.Context, baseURL, name, description string) (*types.Site, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("site base URL cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if site := s.siteByURL(baseURL); site != nil {
		return site, nil
	}
	if name == "" {
		name = baseURL
	}
	site := types.Site{
		ID:          int64(len(s.sites) + 1),
		Name:        name,
		BaseURL:     baseURL,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}
	sites := append(slices.Clip(s.sites), site)
	if err := s.writeDoc(SitesFile, rootschemas.Site, sites); err != nil {
		return nil, err
	}
	s.sites = sites
	return &site, nil
}

// SiteByURL returns the registered site for baseURL, or nil.
func (s *FileStore) SiteByURL(baseURL string) *types.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siteByURL(baseURL)
}

func (s *FileStore) siteByURL(baseURL string) *types.Site {
	for i := range s.sites {
		if s.sites[i].BaseURL == baseURL {
			site := s.sites[i]
			return &site
		}
	}
	return nil
}

// RefreshSitePageCount recomputes the stored page count of a site.
func (s *FileStore) RefreshSitePageCount(_ context.Context, siteID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.pages {
		if p.SiteID == siteID {
			count++
		}
	}
	sites := slices.Clone(s.sites)
	for i := range sites {
		if sites[i].ID == siteID {
			sites[i].PageCount = count
		}
	}
	if err := s.writeDoc(SitesFile, rootschemas.Site, sites); err != nil {
		return 0, err
	}
	s.sites = sites
	return count, nil
}

// -----------------------------------------------------------------------------
// Page Methods
// -----------------------------------------------------------------------------

// UpsertPageWithChunks stores page and replaces its chunks. The page is on
// disk when it returns; on error the store is unchanged.
func (s *FileStore) UpsertPageWithChunks(_ context.Context, siteID int64, page *types.Page, chunks []types.ContentChunk) (int64, error) {
	if page == nil {
		return 0, fmt.Errorf("page cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := filePage{SiteID: siteID, Page: *page, ScrapedAt: s.now().UTC()}
	if stored.Headers == nil {
		stored.Headers = []types.Header{}
	}
	if stored.Metadata == nil {
		stored.Metadata = types.NewMetadata()
	}

	idx := s.pageIndex(siteID, page.URL)
	pages := slices.Clone(s.pages)
	if idx >= 0 {
		stored.ID = pages[idx].ID
		pages[idx] = stored
	} else {
		stored.ID = s.nextPageID()
		pages = append(pages, stored)
	}

	fc := make([]fileChunk, len(chunks))
	for i, c := range chunks {
		if c.Metadata == nil {
			c.Metadata = types.NewMetadata()
		}
		fc[i] = fileChunk{PageID: stored.ID, ContentChunk: c, Embedding: c.Embedding}
	}

	if err := schemas.ValidateDocument(rootschemas.Page, []filePage{stored}); err != nil {
		return 0, fmt.Errorf("page %s does not match schema: %w", page.URL, err)
	}
	if err := schemas.ValidateDocument(rootschemas.Chunk, fc); err != nil {
		return 0, fmt.Errorf("chunks of %s do not match schema: %w", page.URL, err)
	}

	chunksByPage := make(map[int64][]fileChunk, len(s.chunks)+1)
	for id, c := range s.chunks {
		chunksByPage[id] = c
	}
	chunksByPage[stored.ID] = fc

	if err := s.writeDoc(ChunksFile, "", chunkDocument(pages, chunksByPage)); err != nil {
		return 0, err
	}
	if err := s.writeDoc(PagesFile, "", pages); err != nil {
		return 0, err
	}
	s.pages = pages
	s.chunks = chunksByPage
	return stored.ID, nil
}

func (s *FileStore) pageIndex(siteID int64, pageURL string) int {
	for i := range s.pages {
		if s.pages[i].SiteID == siteID && s.pages[i].URL == pageURL {
			return i
		}
	}
	return -1
}

func (s *FileStore) nextPageID() int64 {
	var last int64
	for _, p := range s.pages {
		last = max(last, p.ID)
	}
	return last + 1
}

// Pages returns the stored pages of a site in insertion order.
func (s *FileStore) Pages(siteID int64) []types.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Page
	for _, p := range s.pages {
		if p.SiteID == siteID {
			out = append(out, p.Page)
		}
	}
	return out
}

// Chunks returns the chunks stored for the page with the given URL.
func (s *FileStore) Chunks(siteID int64, pageURL string) []types.ContentChunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.pageIndex(siteID, pageURL)
	if idx < 0 {
		return nil
	}
	stored := s.chunks[s.pages[idx].ID]
	out := make([]types.ContentChunk, len(stored))
	for i, c := range stored {
		out[i] = c.ContentChunk
	}
	return out
}

// chunkDocument lists the chunks of pages in page order. Chunks of pages
// that are not listed are dropped.
func chunkDocument(pages []filePage, chunksByPage map[int64][]fileChunk) []fileChunk {
	out := []fileChunk{}
	for _, p := range pages {
		out = append(out, chunksByPage[p.ID]...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Failed URL Methods
// -----------------------------------------------------------------------------

// RecordFailedURL upserts a ledger entry, bumping attempts on repeat failures.
func (s *FileStore) RecordFailedURL(_ context.Context, siteID int64, pageURL, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	failed := slices.Clone(s.failed)
	found := false
	for i := range failed {
		if failed[i].SiteID == siteID && failed[i].URL == pageURL {
			failed[i].Reason = reason
			failed[i].FailedAt = now
			failed[i].Attempts++
			found = true
			break
		}
	}
	if !found {
		failed = append(failed, types.FailedURL{SiteID: siteID, URL: pageURL, Reason: reason, FailedAt: now, Attempts: 1})
	}
	return s.commitFailed(failed)
}

// ListFailedURLs returns a site's ledger entries in the order they were first recorded.
func (s *FileStore) ListFailedURLs(_ context.Context, siteID int64) ([]types.FailedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.FailedURL
	for _, f := range s.failed {
		if f.SiteID == siteID {
			out = append(out, f)
		}
	}
	return out, nil
}

// ResolveFailedURL removes a ledger entry. Missing entries are ignored.
func (s *FileStore) ResolveFailedURL(_ context.Context, siteID int64, pageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.failed, func(f types.FailedURL) bool {
		return f.SiteID == siteID && f.URL == pageURL
	})
	if i < 0 {
		return nil
	}
	return s.commitFailed(slices.Delete(slices.Clone(s.failed), i, i+1))
}

func (s *FileStore) commitFailed(failed []types.FailedURL) error {
	if err := s.writeDoc(FailedURLsFile, rootschemas.FailedURL, failed); err != nil {
		return err
	}
	s.failed = failed
	return nil
}

// -----------------------------------------------------------------------------
// Document Methods
// -----------------------------------------------------------------------------

// Flush validates every document in full and rewrites all of them. Writes
// are already committed one by one; Flush also creates the files of an
// empty store.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeDoc(SitesFile, rootschemas.Site, s.sites); err != nil {
		return err
	}
	if err := s.writeDoc(ChunksFile, rootschemas.Chunk, chunkDocument(s.pages, s.chunks)); err != nil {
		return err
	}
	if err := s.writeDoc(PagesFile, rootschemas.Page, s.pages); err != nil {
		return err
	}
	return s.writeDoc(FailedURLsFile, rootschemas.FailedURL, s.failed)
}

// writeDoc validates doc against schema, when one is given, and replaces
// the named file with it. A nil slice is written as an empty array.
func (s *FileStore) writeDoc(name, schema string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}
	if schema != "" {
		if err := schemas.ValidateJSONString(schema, string(data)); err != nil {
			return fmt.Errorf("%s does not match schema: %w", name, err)
		}
	}
	return writeFileAtomic(filepath.Join(s.dir, name), data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
