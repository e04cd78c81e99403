// Package archivewatch watches a directory for newly-dropped Odin
// .tar.md5 archives and feeds their paths to a channel, the headless
// equivalent of the GUI file-picker this project's reference tooling
// otherwise requires an operator to drive by hand.
package archivewatch

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
)

var log = odinlog.New("ARCHIVE")

// Watcher reports paths of .tar.md5 files written into a watched
// directory after construction. Files already present when Watch starts
// are not reported.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Found   chan string
	Errors  chan error
}

// Watch begins watching dir and returns a Watcher whose Found channel
// receives the path of a .tar.md5 file on every Create, Write or Rename
// event for it. One file can therefore be reported several times (a
// create followed by writes), and a report does not mean the file has
// been completely written.
func Watch(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		Found:  make(chan string, 16),
		Errors: make(chan error, 16),
	}
	go w.loop()
	log.Infof("watching %s for new archives", dir)
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isArchive(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugf("new archive: %s", ev.Name)
			w.Found <- ev.Name
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.Errors <- err
		}
	}
}

// Close stops the underlying filesystem watch. The Found and Errors
// channels are not closed, since a goroutine may still be draining them;
// callers should stop reading once Close returns.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func isArchive(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	return strings.HasSuffix(base, ".tar.md5")
}
