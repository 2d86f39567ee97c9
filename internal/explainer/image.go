package explainer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
	"github.com/hammamikhairi/kidzstage/internal/logger"
)

// ── Sources ──────────────────────────────────────────────────────

// ImageSource looks up an illustrative picture for a topic. A source
// returns domain.ErrNotFound when it has nothing for the query.
type ImageSource interface {
	Name() string
	Lookup(ctx context.Context, query, lang string) (*domain.TopicImage, error)
}

// imageJSON is the shape served by the proxy's /topic-image route.
type imageJSON struct {
	ImageURL string `json:"imageUrl"`
	Title    string `json:"title"`
	PageURL  string `json:"pageUrl"`
}

// ProxySource asks the frontend proxy, which runs its own Wikipedia
// lookup server side.
type ProxySource struct {
	baseURL string
	http    *http.Client
}

// NewProxySource creates a proxy image source rooted at baseURL.
func NewProxySource(baseURL string, timeout time.Duration) *ProxySource {
	return &ProxySource{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (p *ProxySource) Name() string { return "proxy" }

// Lookup calls GET /topic-image?query=&lang=.
func (p *ProxySource) Lookup(ctx context.Context, query, lang string) (*domain.TopicImage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("lang", lang)

	var out imageJSON
	if err := getJSON(ctx, p.http, p.baseURL+"/topic-image?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.ImageURL == "" {
		return nil, domain.ErrNotFound
	}
	return &domain.TopicImage{
		ImageURL: out.ImageURL,
		Title:    firstNonEmpty(out.Title, query),
		PageURL:  out.PageURL,
		Source:   p.Name(),
	}, nil
}

// WikiLanguages are the wikis searched directly. Anything else is
// looked up on English Wikipedia.
var WikiLanguages = []string{"en", "hi", "bn", "ta", "te"}

// WikipediaSource searches Wikipedia directly: a generator search for
// the best page and its thumbnail, then the REST summary when the page
// has no page image. A miss on a non-English wiki is retried on English.
type WikipediaSource struct {
	baseFor func(lang string) string
	http    *http.Client
}

// WikipediaOption configures the WikipediaSource.
type WikipediaOption func(*WikipediaSource)

// WithWikiBase overrides how a wiki language maps to a base URL.
func WithWikiBase(fn func(lang string) string) WikipediaOption {
	return func(w *WikipediaSource) { w.baseFor = fn }
}

// NewWikipediaSource creates a Wikipedia image source.
func NewWikipediaSource(timeout time.Duration, opts ...WikipediaOption) *WikipediaSource {
	w := &WikipediaSource{
		baseFor: func(lang string) string { return "https://" + lang + ".wikipedia.org" },
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *WikipediaSource) Name() string { return "wikipedia" }

// Lookup searches the wiki for lang, falling back to English.
func (w *WikipediaSource) Lookup(ctx context.Context, query, lang string) (*domain.TopicImage, error) {
	code := WikiLang(lang)
	img, err := w.lookupOn(ctx, query, code)
	if err == nil || code == "en" || ctx.Err() != nil {
		return img, err
	}
	return w.lookupOn(ctx, query, "en")
}

type wikiSearch struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			FullURL   string `json:"fullurl"`
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

type wikiSummary struct {
	Title     string `json:"title"`
	Thumbnail struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	OriginalImage struct {
		Source string `json:"source"`
	} `json:"originalimage"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
		Mobile struct {
			Page string `json:"page"`
		} `json:"mobile"`
	} `json:"content_urls"`
}

func (w *WikipediaSource) lookupOn(ctx context.Context, query, code string) (*domain.TopicImage, error) {
	base := strings.TrimRight(w.baseFor(code), "/")

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("generator", "search")
	q.Set("gsrsearch", query)
	q.Set("gsrlimit", "1")
	q.Set("utf8", "1")
	q.Set("redirects", "1")
	q.Set("prop", "pageimages|info")
	q.Set("inprop", "url")
	q.Set("pithumbsize", "800")

	var search wikiSearch
	if err := getJSON(ctx, w.http, base+"/w/api.php?"+q.Encode(), &search); err != nil {
		return nil, err
	}

	title, pageURL := query, ""
	for _, page := range search.Query.Pages {
		if page.Title != "" {
			title = page.Title
		}
		pageURL = page.FullURL
		if page.Thumbnail.Source != "" {
			return &domain.TopicImage{ImageURL: page.Thumbnail.Source, Title: title, PageURL: pageURL, Source: w.Name()}, nil
		}
		break
	}

	var sum wikiSummary
	path := url.PathEscape(strings.Join(strings.Fields(title), " "))
	if err := getJSON(ctx, w.http, base+"/api/rest_v1/page/summary/"+path, &sum); err != nil {
		return nil, err
	}
	src := firstNonEmpty(sum.Thumbnail.Source, sum.OriginalImage.Source)
	if src == "" {
		return nil, domain.ErrNotFound
	}
	return &domain.TopicImage{
		ImageURL: src,
		Title:    firstNonEmpty(sum.Title, title),
		PageURL:  firstNonEmpty(sum.ContentURLs.Desktop.Page, sum.ContentURLs.Mobile.Page, pageURL),
		Source:   w.Name(),
	}, nil
}

// WikiLang maps a BCP-47 tag to a supported wiki code, "en" otherwise.
func WikiLang(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	for _, l := range WikiLanguages {
		if tag == l {
			return l
		}
	}
	return "en"
}

// ── Placeholder ──────────────────────────────────────────────────

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="450" viewBox="0 0 800 450">` +
	`<rect width="800" height="450" rx="32" fill="#fff4d6"/>` +
	`<circle cx="400" cy="170" r="70" fill="#ffd166"/>` +
	`<text x="400" y="330" font-family="sans-serif" font-size="40" text-anchor="middle" fill="#3d405b">%s</text>` +
	`</svg>`

// Placeholder returns a locally generated card for the topic. It never
// fails.
func Placeholder(query string) *domain.TopicImage {
	title := strings.TrimSpace(query)
	if title == "" {
		title = "Topic"
	}
	svg := fmt.Sprintf(placeholderSVG, html.EscapeString(title))
	return &domain.TopicImage{
		ImageURL:    "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg)),
		Title:       title,
		Source:      "placeholder",
		Placeholder: true,
	}
}

// ── Resolver ─────────────────────────────────────────────────────

// Resolver tries each source in order and ends at the placeholder.
type Resolver struct {
	sources []ImageSource
	log     *logger.Logger
}

// NewResolver creates a resolver over the given sources.
func NewResolver(log *logger.Logger, sources ...ImageSource) *Resolver {
	return &Resolver{sources: sources, log: log}
}

// Resolve returns an image for the query. The result is never nil.
func (r *Resolver) Resolve(ctx context.Context, query, lang string) *domain.TopicImage {
	if strings.TrimSpace(query) != "" {
		for _, src := range r.sources {
			if ctx.Err() != nil {
				break
			}
			img, err := src.Lookup(ctx, query, lang)
			if err == nil && img != nil && img.ImageURL != "" {
				r.log.Debug("explainer: image for %q from %s", query, src.Name())
				return img
			}
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				r.log.Debug("explainer: %s image lookup failed: %v", src.Name(), err)
			}
		}
	}
	return Placeholder(query)
}

// ── HTTP helpers ─────────────────────────────────────────────────

// getJSON fetches url and decodes the body into out. 404 maps to
// domain.ErrNotFound.
func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("explainer: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "kidzstage/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("explainer: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("explainer: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("explainer: HTTP %s: %s", resp.Status, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("explainer: decode response: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
