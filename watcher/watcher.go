// Package watcher imports images dropped into a watched directory, so the DM
// can fill the gallery from a file manager instead of the upload form.
package watcher

import (
	"context"
	"encoding/base64"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"dmscreen/core/gallery"
	"dmscreen/logger"
	"dmscreen/model"
)

// settle is how long the directory must stay quiet before a rescan; copying
// a folder in fires hundreds of events.
const settle = 500 * time.Millisecond

// Watcher rescans dir on changes and re-imports the whole image set, matching
// the gallery's rebuild-from-scratch semantics.
type Watcher struct {
	dir     string
	gallery *gallery.Gallery
	fsw     *fsnotify.Watcher
}

// New creates a watcher over dir feeding g. The directory is created when
// missing.
func New(dir string, g *gallery.Gallery) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, gallery: g, fsw: fsw}, nil
}

// Run performs one initial scan and then rescans after every quiet period.
// It returns when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	w.scan(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
				fire = timer.C
			} else {
				timer.Reset(settle)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("media watch error", logger.ErrorField(err))
		case <-fire:
			timer = nil
			fire = nil
			w.scan(ctx)
		}
	}
}

// scan walks the directory and imports every image found, paths relative to
// the watch root.
func (w *Watcher) scan(ctx context.Context) {
	var items []model.MediaItem
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if !strings.HasPrefix(mimeType, "image/") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("unreadable media file", logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			return nil
		}
		items = append(items, model.MediaItem{
			Name:         d.Name(),
			DataURI:      "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			RelativePath: filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		logger.Warn("media scan failed", logger.ErrorField(err))
		return
	}
	if len(items) == 0 {
		return
	}
	if err := w.gallery.Import(ctx, items); err != nil {
		logger.Warn("media auto-import failed", logger.ErrorField(err))
	}
}
