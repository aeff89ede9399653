// Package cms loads blog posts from markdown files with YAML front matter.
package cms

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for unknown slugs.
var ErrNotFound = errors.New("cms: not found")

const (
	comingSoon     = "Full content for this article is coming soon. Check back later for the complete post."
	wordsPerMinute = 200
)

// Post is a blog article.
type Post struct {
	Slug        string
	Title       string
	Excerpt     string
	Category    string
	Author      string
	Date        time.Time
	ReadMinutes int
	Body        string
	HTML        template.HTML
	UpdatedAt   time.Time
}

// ReadTime returns the "N min read" label.
func (p Post) ReadTime() string {
	return fmt.Sprintf("%d min read", max(p.ReadMinutes, 1))
}

// HasBody reports whether the post has rendered content.
func (p Post) HasBody() bool { return strings.TrimSpace(string(p.HTML)) != "" }

// ComingSoon is shown in place of a missing body.
func (p Post) ComingSoon() string { return comingSoon }

type frontMatter struct {
	Title    string `yaml:"title"`
	Excerpt  string `yaml:"excerpt"`
	Category string `yaml:"category"`
	Author   string `yaml:"author"`
	Date     string `yaml:"date"`
	ReadTime int    `yaml:"read_time"`
	Draft    bool   `yaml:"draft"`
}

// Blog is an in-memory, reloadable set of posts.
type Blog struct {
	dir string

	mu    sync.RWMutex
	posts []Post
}

// NewBlog loads posts from dir/blog. A missing directory leaves only the
// built-in posts.
func NewBlog(dir string) (*Blog, error) {
	b := &Blog{dir: strings.TrimSpace(dir)}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads the markdown files.
func (b *Blog) Reload() error {
	posts, err := loadPosts(b.dir)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.posts = posts
	b.mu.Unlock()
	return nil
}

// Posts returns every post, newest first.
func (b *Blog) Posts() []Post {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Post(nil), b.posts...)
}

// Get returns the post for slug.
func (b *Blog) Get(slug string) (Post, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Post{}, ErrNotFound
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

// Related returns up to n other posts in index order.
func (b *Blog) Related(slug string, n int) []Post {
	var out []Post
	for _, p := range b.Posts() {
		if len(out) >= n {
			break
		}
		if p.Slug != slug {
			out = append(out, p)
		}
	}
	return out
}

func loadPosts(dir string) ([]Post, error) {
	bySlug := make(map[string]Post)
	for _, p := range fallbackPosts() {
		bySlug[p.Slug] = p
	}

	if dir != "" {
		files, err := filepath.Glob(filepath.Join(dir, "blog", "*.md"))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			post, err := readPost(file)
			if err != nil {
				return nil, err
			}
			if post.Slug == "" {
				continue
			}
			base := bySlug[post.Slug]
			bySlug[post.Slug] = mergePost(base, post)
		}
	}

	posts := make([]Post, 0, len(bySlug))
	for _, p := range bySlug {
		posts = append(posts, p)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Slug < posts[j].Slug
		}
		return posts[i].Date.After(posts[j].Date)
	})
	return posts, nil
}

func readPost(file string) (Post, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Post{}, nil
		}
		return Post{}, err
	}
	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Post{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}
	if front.Draft {
		return Post{}, nil
	}
	slug := sanitizeSlug(strings.TrimSuffix(filepath.Base(file), ".md"))
	html, err := RenderMarkdown(body)
	if err != nil {
		return Post{}, fmt.Errorf("cms: render %s: %w", file, err)
	}
	post := Post{
		Slug:        slug,
		Title:       strings.TrimSpace(front.Title),
		Excerpt:     strings.TrimSpace(front.Excerpt),
		Category:    strings.TrimSpace(front.Category),
		Author:      strings.TrimSpace(front.Author),
		Date:        parseDate(front.Date),
		ReadMinutes: front.ReadTime,
		Body:        body,
		HTML:        html,
	}
	if post.ReadMinutes <= 0 {
		post.ReadMinutes = estimateMinutes(body)
	}
	if info, err := os.Stat(file); err == nil {
		post.UpdatedAt = info.ModTime().UTC()
	}
	return post, nil
}

func mergePost(base, over Post) Post {
	out := over
	if out.Title == "" {
		out.Title = firstNonEmpty(base.Title, prettifySlug(over.Slug))
	}
	out.Excerpt = firstNonEmpty(out.Excerpt, base.Excerpt)
	out.Category = firstNonEmpty(out.Category, base.Category)
	if out.Date.IsZero() {
		out.Date = base.Date
	}
	if strings.TrimSpace(out.Body) == "" && base.ReadMinutes > 0 {
		out.ReadMinutes = base.ReadMinutes
	}
	return out
}

func estimateMinutes(body string) int {
	words := len(strings.Fields(body))
	if words == 0 {
		return 1
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	input = strings.ReplaceAll(input, "\r\n", "\n")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.ToLower(strings.TrimSpace(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
