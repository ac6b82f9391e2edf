// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/LecternAI/Lectern/services/vectorstore"
)

// maxConcurrentFiles bounds parallel document parsing during a folder
// load. Parsing is cheap; the bound mostly protects the vector store
// from a thundering herd of batch inserts.
const maxConcurrentFiles = 4

// Loader ingests course documents into the vector store.
//
// Thread Safety: Safe for concurrent use; the known-titles set is
// guarded internally.
type Loader struct {
	store     vectorstore.Store
	processor *Processor
	logger    *slog.Logger

	mu     sync.Mutex
	titles map[string]bool
}

// NewLoader creates a Loader over the given store.
func NewLoader(store vectorstore.Store, processor *Processor) *Loader {
	if processor == nil {
		processor = NewProcessor(0, 0)
	}
	return &Loader{
		store:     store,
		processor: processor,
		logger:    slog.Default(),
		titles:    make(map[string]bool),
	}
}

// AddCourseFolder ingests every course document in a directory.
//
// Description:
//
//	Recognizes .txt files. Courses whose titles are already indexed are
//	skipped, so repeated startup loads are idempotent. With
//	clearExisting, the store is wiped first. Files are processed
//	concurrently up to maxConcurrentFiles; one bad file fails the
//	whole load.
//
// Outputs:
//   - int: Courses added.
//   - int: Chunks added.
//   - error: Non-nil on read, parse, or store failure.
func (l *Loader) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		if err := l.store.Clear(ctx); err != nil {
			return 0, 0, fmt.Errorf("clearing store: %w", err)
		}
	}

	existing, err := l.store.CourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing existing courses: %w", err)
	}
	l.mu.Lock()
	for _, title := range existing {
		l.titles[title] = true
	}
	l.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading course folder: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var mu sync.Mutex
	courses, chunks := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for _, path := range paths {
		g.Go(func() error {
			added, err := l.AddCourseFile(gctx, path)
			if err != nil {
				return err
			}
			if added > 0 {
				mu.Lock()
				courses++
				chunks += added
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return courses, chunks, err
	}

	l.logger.Info("course folder loaded",
		slog.String("dir", dir),
		slog.Int("courses", courses),
		slog.Int("chunks", chunks),
	)
	return courses, chunks, nil
}

// AddCourseFile ingests a single course document, returning the number
// of chunks added. Returns 0 without error when the course title is
// already indexed.
func (l *Loader) AddCourseFile(ctx context.Context, path string) (int, error) {
	course, chunks, err := l.processor.ProcessFile(path)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	if l.titles[course.Title] {
		l.mu.Unlock()
		l.logger.Debug("course already indexed, skipping",
			slog.String("title", course.Title), slog.String("path", path))
		return 0, nil
	}
	l.titles[course.Title] = true
	l.mu.Unlock()

	if err := l.store.AddCourse(ctx, course); err != nil {
		return 0, fmt.Errorf("indexing course %q: %w", course.Title, err)
	}
	if err := l.store.AddChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("indexing chunks for %q: %w", course.Title, err)
	}

	l.logger.Info("course indexed",
		slog.String("title", course.Title),
		slog.Int("lessons", len(course.Lessons)),
		slog.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// Watch ingests new course documents dropped into dir until ctx is
// cancelled.
//
// Description:
//
//	A create or write event on a .txt file triggers ingestion of that
//	file. The title-dedup check makes repeated write events for one
//	file harmless. Intended to run on its own goroutine.
func (l *Loader) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	l.logger.Info("watching course folder", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".txt") {
				continue
			}
			if _, err := l.AddCourseFile(ctx, event.Name); err != nil {
				// A half-written file fails to parse; the next write
				// event retries it.
				l.logger.Warn("ingesting watched file failed",
					slog.String("path", event.Name), slog.String("error", err.Error()))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
