package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/format"
	"github.com/ciphera-net/website/internal/i18n"
	"github.com/ciphera-net/website/internal/platform/requestctx"
)

// renderer owns the parsed template sets. Each page under pages/ is cloned
// from the shared layouts and partials so every page can define "content".
type renderer struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	mu     sync.RWMutex
	shared *template.Template
	pages  map[string]*template.Template
}

func newRenderer(dir string, dev bool, funcs template.FuncMap) (*renderer, error) {
	rd := &renderer{dir: dir, dev: dev, funcs: funcs}
	if err := rd.load(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *renderer) load() error {
	var shared, pages []string
	err := filepath.WalkDir(rd.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pages = append(pages, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(shared) == 0 || len(pages) == 0 {
		return fmt.Errorf("no templates found under %s", rd.dir)
	}

	base, err := template.New("_root").Funcs(rd.funcs).ParseFiles(shared...)
	if err != nil {
		return err
	}
	set := make(map[string]*template.Template, len(pages))
	for _, file := range pages {
		clone, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := clone.ParseFiles(file); err != nil {
			return err
		}
		set[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = clone
	}

	rd.mu.Lock()
	rd.shared = base
	rd.pages = set
	rd.mu.Unlock()
	return nil
}

// page executes the layout with the named page into a buffer.
func (rd *renderer) page(name string, data any) (*bytes.Buffer, error) {
	rd.mu.RLock()
	t, ok := rd.pages[name]
	rd.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("page template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, err
	}
	return &buf, nil
}

// fragment executes a shared template by name into a buffer.
func (rd *renderer) fragment(name string, data any) (*bytes.Buffer, error) {
	rd.mu.RLock()
	t := rd.shared
	rd.mu.RUnlock()
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return &buf, nil
}

// Watch reparses templates when files under dirs change and then calls
// onChange. It blocks until ctx is done.
func (rd *renderer) Watch(ctx context.Context, logger *zap.Logger, dirs []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if err := watcher.Add(path); err != nil {
					logger.Debug("watch skipped", zap.String("dir", path), zap.Error(err))
				}
			}
			return nil
		})
	}

	const settle = 150 * time.Millisecond
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				pending = time.After(settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := rd.load(); err != nil {
				logger.Error("template reload failed", zap.Error(err))
				continue
			}
			if onChange != nil {
				onChange()
			}
			logger.Info("templates reloaded")
		}
	}
}

// renderPage writes a full HTML page with status.
func (a *app) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	buf, err := a.views.page(name, data)
	a.writeHTML(w, r, status, buf, err)
}

// renderFragment writes a partial, typically for htmx swaps.
func (a *app) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	buf, err := a.views.fragment(name, data)
	a.writeHTML(w, r, status, buf, err)
}

func (a *app) writeHTML(w http.ResponseWriter, r *http.Request, status int, buf *bytes.Buffer, err error) {
	if err != nil {
		requestctx.Logger(r.Context()).Error("template exec error", zap.Error(err))
		msg := "internal server error"
		if a.cfg.Site.DevMode {
			msg = fmt.Sprintf("template exec error: %v", err)
		}
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func templateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"t": bundle.T,
		"tf": func(lang, key string, args ...any) string {
			return fmt.Sprintf(bundle.T(lang, key), args...)
		},
		"fmtDate":  format.FmtDate,
		"isoDate":  format.ISODate,
		"fileSize": format.FileSize,
		"counter":  format.Counter,
		"year":     func() int { return time.Now().Year() },
		"add":      func(a, b int) int { return a + b },
		"jsonld":   func(s string) template.JS { return template.JS(s) },
		"toJSON": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, errors.New("dict needs key/value pairs")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				key, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", kv[i])
				}
				m[key] = kv[i+1]
			}
			return m, nil
		},
	}
}
