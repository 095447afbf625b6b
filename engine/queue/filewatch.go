// Alarmd
// Copyright (C) 2013-2026+ the alarmd contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package queue

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fileWatcher is a single-file specialization of a recursive directory
// watcher: it watches the queue file's containing directory (since the
// file itself may not exist yet, or may be replaced by a rename rather
// than written in place) and reports events that touch the queue file's
// name and whose mtime+size do not match what this process itself just
// wrote. It mirrors the structure of a watcher built around fsnotify
// directly: newFileWatcher starts a goroutine, Close tears it down and
// waits.
type fileWatcher struct {
	path   string
	name   string
	watcher *fsnotify.Watcher
	events  chan struct{}
	exit    chan struct{}
	wg      sync.WaitGroup

	mu           sync.Mutex
	expectedSize int64
	expectedMod  int64
}

// newFileWatcher starts watching the directory containing path.
func newFileWatcher(path string) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	fw := &fileWatcher{
		path:    path,
		name:    filepath.Base(path),
		watcher: w,
		events:  make(chan struct{}, 1),
		exit:    make(chan struct{}),
	}
	fw.rememberCurrentStat()

	fw.wg.Add(1)
	go fw.run()
	return fw, nil
}

func (fw *fileWatcher) rememberCurrentStat() {
	info, err := os.Stat(fw.path)
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err != nil {
		fw.expectedSize, fw.expectedMod = -1, -1
		return
	}
	fw.expectedSize = info.Size()
	fw.expectedMod = info.ModTime().UnixNano()
}

// noteSelfWrite tells the watcher that the next filesystem event for this
// path was caused by this process's own persist(), so it should update
// its expected stat instead of reporting external modification.
func (fw *fileWatcher) noteSelfWrite() {
	fw.rememberCurrentStat()
}

func (fw *fileWatcher) run() {
	defer fw.wg.Done()
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != fw.name {
				continue
			}
			fw.checkForExternalChange()
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
		case <-fw.exit:
			return
		}
	}
}

func (fw *fileWatcher) checkForExternalChange() {
	info, err := os.Stat(fw.path)
	var size, mod int64 = -1, -1
	if err == nil {
		size, mod = info.Size(), info.ModTime().UnixNano()
	}

	fw.mu.Lock()
	changed := size != fw.expectedSize || mod != fw.expectedMod
	fw.expectedSize, fw.expectedMod = size, mod
	fw.mu.Unlock()

	if !changed {
		return
	}
	select {
	case fw.events <- struct{}{}:
	default: // a pending notification already covers this
	}
}

func (fw *fileWatcher) Close() error {
	close(fw.exit)
	fw.wg.Wait()
	return fw.watcher.Close()
}
