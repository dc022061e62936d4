package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"namematch/internal/model"
)

const maxSourceBytes = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader reads catalog sources from disk or over HTTP.
type Loader struct {
	client  HTTPClient
	timeout time.Duration
	log     *slog.Logger
}

// NewLoader creates a Loader with the given HTTP client.
func NewLoader(client HTTPClient, log *slog.Logger) *Loader {
	return &Loader{
		client:  client,
		timeout: 30 * time.Second,
		log:     log,
	}
}

// LoadAll reads every source and merges them in order. A source that fails
// to load is logged and skipped; the result may be empty.
func (l *Loader) LoadAll(ctx context.Context, sources []string) *Index {
	var lists [][]model.Item
	for _, src := range sources {
		items, err := l.Load(ctx, src)
		if err != nil {
			l.log.Error("load catalog source", "source", src, "error", err)
			continue
		}
		l.log.Info("catalog source loaded", "source", src, "count", len(items))
		lists = append(lists, items)
	}
	if len(lists) == 0 {
		return NewIndex(nil)
	}
	return NewIndex(Merge(lists[0], lists[1:]...))
}

// Load reads a single source. JSON is assumed unless the source looks like
// an RSS or Atom feed.
func (l *Loader) Load(ctx context.Context, src string) ([]model.Item, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = l.fetch(ctx, src)
	} else {
		data, err = os.ReadFile(src) //nolint:gosec // operator-supplied path
	}
	if err != nil {
		return nil, err
	}

	decode := DecodeJSON
	if isFeed(src, data) {
		decode = DecodeFeed
	}
	items, err := decode(data)
	if err != nil {
		return nil, err
	}
	return l.known(src, items), nil
}

// known drops entries whose gender or popularity is not a supported value;
// no filter could ever select them.
func (l *Loader) known(src string, items []model.Item) []model.Item {
	out := items[:0]
	for _, it := range items {
		if !it.Gender.Valid() || !it.Popularity.Valid() {
			l.log.Warn("skip catalog entry", "source", src, "name", it.Name, "gender", it.Gender, "popularity", it.Popularity)
			continue
		}
		out = append(out, it)
	}
	return out
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "NameMatchBot/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func isFeed(src string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".xml", ".rss", ".atom":
		return true
	case ".json":
		return false
	}
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("<"))
}

// DecodeJSON parses a JSON array of catalog entries. Entries without an id
// get one derived from their name; entries without a name are dropped.
func DecodeJSON(data []byte) ([]model.Item, error) {
	var raw []model.Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	items := make([]model.Item, 0, len(raw))
	for _, it := range raw {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		if it.ID == "" {
			it.ID = model.ItemID(it.Name)
		}
		items = append(items, it)
	}
	return items, nil
}

// DecodeFeed parses an RSS or Atom feed where each entry is one name.
// Categories of the form "gender:female", "origin:latin", "style:nature"
// and "popularity:rare" carry the attributes; the description is the meaning.
func DecodeFeed(data []byte) ([]model.Item, error) {
	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		name := strings.TrimSpace(entry.Title)
		if name == "" {
			continue
		}
		it := model.Item{
			ID:         model.ItemID(name),
			Name:       name,
			Gender:     model.GenderNeutral,
			Meaning:    strings.TrimSpace(entry.Description),
			Popularity: model.PopularityCommon,
		}
		for _, cat := range entry.Categories {
			key, value, ok := strings.Cut(cat, ":")
			if !ok {
				continue
			}
			value = strings.ToLower(strings.TrimSpace(value))
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "gender":
				it.Gender = model.Gender(value)
			case "origin":
				it.Origins = append(it.Origins, value)
			case "style":
				it.Styles = append(it.Styles, value)
			case "popularity":
				it.Popularity = model.Popularity(value)
			}
		}
		items = append(items, it)
	}
	return items, nil
}
