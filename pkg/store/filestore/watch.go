package filestore

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the document whenever the file is replaced or written by
// another process. The directory is watched rather than the file because
// every flush swaps the inode through a rename. A document that fails to
// parse is logged and ignored; the last good state stays in memory.
func (s *Store) Watch() error {
	if s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filestore: new watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("filestore: watch %s: %w", s.path, err)
	}
	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop(w)
	return nil
}

func (s *Store) watchLoop(w *fsnotify.Watcher) {
	defer close(s.done)
	name := filepath.Base(s.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Str("path", s.path).Msg("file watcher error")
		}
	}
}

func (s *Store) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := readDocument(s.path)
	if errors.Is(err, errEmptyDocument) {
		// a writer truncated the file and has not finished yet
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("ignoring unreadable document")
		return
	}
	s.doc = doc
	s.log.Debug().Str("path", s.path).Int("users", len(doc.Users)).Int("transactions", len(doc.Transactions)).Msg("document reloaded")
}
