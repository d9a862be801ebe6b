// Package github resolves Maven artifacts to GitHub source locations:
// a caching, rate-limited index client, a repository locator, and a
// ref/path resolver built on top of it.
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	gh "github.com/google/go-github/v68/github"
)

var (
	// ErrNotFound marks a definitive 404 from the index
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks any other failure, including an exhausted
	// rate-limit budget. Callers proceed with fallbacks; it never
	// propagates as a user-visible error.
	ErrUnavailable = errors.New("index unavailable")
)

const (
	perCallTimeout = 5 * time.Second

	searchPageSize = 20
	tagsPerPage    = 100
	maxTagPages    = 3

	// defaultBudget is the assumed call budget until the first response
	// reports real figures. Anonymous clients get half of it.
	defaultBudget = 5000
)

// Index is the query surface the locator and resolver consume
type Index interface {
	SearchRepos(ctx context.Context, query string) ([]RepoMetadata, error)
	GetContents(ctx context.Context, owner, repo, path, ref string) ([]DirEntry, error)
	ListTags(ctx context.Context, owner, repo string) ([]string, error)
}

// RepoMetadata is the repository metadata the scoring heuristics run on
type RepoMetadata struct {
	Name        string
	Owner       string
	OwnerType   string // "User" or "Organization"
	Description string
	Stars       int
	Fork        bool
	Archived    bool
	Disabled    bool
}

// DirEntry is one entry of a repository directory listing
type DirEntry struct {
	Name string
	Type string // "file" or "dir"
}

// IsDir reports whether the entry is a directory
func (e DirEntry) IsDir() bool {
	return e.Type == "dir"
}

type cacheEntry struct {
	value    interface{}
	notFound bool
}

// Client queries the GitHub REST API with response memoization and a
// rate-limit budget. The mutex guarding cache and budget is the single
// synchronization point if callers ever parallelize.
type Client struct {
	api    *gh.Client
	logger *slog.Logger

	mu        sync.Mutex
	cache     map[string]cacheEntry
	remaining int
	reset     time.Time

	now func() time.Time
}

// NewClient creates a Client. The token is optional; without it the
// initial budget ceiling is halved.
func NewClient(token string, logger *slog.Logger) *Client {
	api := gh.NewClient(nil)
	budget := defaultBudget / 2
	if token != "" {
		api = api.WithAuthToken(token)
		budget = defaultBudget
	}
	return &Client{
		api:       api,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
		remaining: budget,
		now:       time.Now,
	}
}

// SetBaseURL redirects API traffic, for tests
func (c *Client) SetBaseURL(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	c.api.BaseURL = u
	return nil
}

// SearchRepos searches repositories sorted by stars descending
func (c *Client) SearchRepos(ctx context.Context, query string) ([]RepoMetadata, error) {
	key := fingerprint("search/repositories", url.Values{
		"q":        {query},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(searchPageSize)},
	})
	if repos, err, ok := cachedAs[[]RepoMetadata](c, key); ok {
		return repos, err
	}
	if !c.budgetAvailable() {
		return nil, ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	result, resp, err := c.api.Search.Repositories(callCtx, query, &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: searchPageSize},
	})
	c.note(resp)
	if err != nil {
		return nil, c.classify(key, err)
	}

	repos := make([]RepoMetadata, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		repos = append(repos, repoMetadata(r))
	}
	c.store(key, repos)
	return repos, nil
}

// GetContents lists a repository path at the given ref. A single file
// comes back as a one-entry listing.
func (c *Client) GetContents(ctx context.Context, owner, repo, path, ref string) ([]DirEntry, error) {
	key := fingerprint("repos/"+owner+"/"+repo+"/contents/"+path, url.Values{"ref": {ref}})
	if entries, err, ok := cachedAs[[]DirEntry](c, key); ok {
		return entries, err
	}
	if !c.budgetAvailable() {
		return nil, ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	file, dir, resp, err := c.api.Repositories.GetContents(callCtx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: ref})
	c.note(resp)
	if err != nil {
		return nil, c.classify(key, err)
	}

	var entries []DirEntry
	if file != nil {
		entries = []DirEntry{{Name: file.GetName(), Type: file.GetType()}}
	} else {
		entries = make([]DirEntry, 0, len(dir))
		for _, item := range dir {
			entries = append(entries, DirEntry{Name: item.GetName(), Type: item.GetType()})
		}
	}
	c.store(key, entries)
	return entries, nil
}

// ListTags returns tag names, walking pages of 100 up to 3 pages to
// bound API cost. A short page ends the walk early.
func (c *Client) ListTags(ctx context.Context, owner, repo string) ([]string, error) {
	var tags []string
	for page := 1; page <= maxTagPages; page++ {
		names, err := c.listTagsPage(ctx, owner, repo, page)
		if err != nil {
			// A later page failing still leaves usable earlier pages.
			if len(tags) > 0 {
				return tags, nil
			}
			return nil, err
		}
		tags = append(tags, names...)
		if len(names) < tagsPerPage {
			break
		}
	}
	return tags, nil
}

func (c *Client) listTagsPage(ctx context.Context, owner, repo string, page int) ([]string, error) {
	key := fingerprint("repos/"+owner+"/"+repo+"/tags", url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(tagsPerPage)},
	})
	if names, err, ok := cachedAs[[]string](c, key); ok {
		return names, err
	}
	if !c.budgetAvailable() {
		return nil, ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	result, resp, err := c.api.Repositories.ListTags(callCtx, owner, repo, &gh.ListOptions{Page: page, PerPage: tagsPerPage})
	c.note(resp)
	if err != nil {
		return nil, c.classify(key, err)
	}

	names := make([]string, 0, len(result))
	for _, tag := range result {
		names = append(names, tag.GetName())
	}
	c.store(key, names)
	return names, nil
}

// fingerprint builds the cache key: endpoint path plus the query in
// canonical (sorted-key) form.
func fingerprint(path string, params url.Values) string {
	return path + "?" + params.Encode()
}

// cachedAs looks up a cache entry, translating the negative marker
// back to ErrNotFound.
func cachedAs[T any](c *Client, key string) (T, error, bool) {
	var zero T
	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if !ok {
		return zero, nil, false
	}
	if entry.notFound {
		return zero, ErrNotFound, true
	}
	return entry.value.(T), nil, true
}

func (c *Client) store(key string, value interface{}) {
	c.mu.Lock()
	c.cache[key] = cacheEntry{value: value}
	c.mu.Unlock()
}

// budgetAvailable checks the rate-limit budget before a call. An
// exhausted budget silently degrades until the reset time passes.
func (c *Client) budgetAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 && c.now().Before(c.reset) {
		c.logger.Debug("rate limit exhausted, skipping API call", "reset", c.reset)
		return false
	}
	return true
}

// note refreshes the budget from response headers
func (c *Client) note(resp *gh.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	c.mu.Lock()
	c.remaining = resp.Rate.Remaining
	c.reset = resp.Rate.Reset.Time
	c.mu.Unlock()
}

// classify maps a transport error to the sentinel the callers handle.
// Not-found is cached; unavailability is transient and is not.
func (c *Client) classify(key string, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		c.mu.Lock()
		c.remaining = 0
		c.reset = rateErr.Rate.Reset.Time
		c.mu.Unlock()
		return ErrUnavailable
	}

	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil && apiErr.Response.StatusCode == 404 {
		c.mu.Lock()
		c.cache[key] = cacheEntry{notFound: true}
		c.mu.Unlock()
		return ErrNotFound
	}

	c.logger.Debug("API call failed", "error", err)
	return ErrUnavailable
}

func repoMetadata(r *gh.Repository) RepoMetadata {
	return RepoMetadata{
		Name:        r.GetName(),
		Owner:       r.GetOwner().GetLogin(),
		OwnerType:   r.GetOwner().GetType(),
		Description: r.GetDescription(),
		Stars:       r.GetStargazersCount(),
		Fork:        r.GetFork(),
		Archived:    r.GetArchived(),
		Disabled:    r.GetDisabled(),
	}
}
