// Package archiveflash provides the convenience path that flashes every
// matching entry of an Odin archive against a partition table in one
// call, instead of making callers drive odinarchive, pit and session
// manually.
package archiveflash

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"strings"

	"github.jpl.nasa.gov/bdube/odinflash/odinarchive"
	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
	"github.jpl.nasa.gov/bdube/odinflash/pit"
	"github.jpl.nasa.gov/bdube/odinflash/session"
)

var log = odinlog.New(odinlog.FLASH)

// Result summarizes one archive-flash run, reporting which entries were
// written and which tar members were skipped for having no matching
// partition.
type Result struct {
	Flashed []string
	Skipped []string
}

// FlashArchive validates rdr, then flashes every tar entry whose file stem
// matches a PIT partition name in p, reporting progress (if progressFn
// is non-nil) across the whole run rather than per-entry.
func FlashArchive(sess *session.Session, rdr *odinarchive.Reader, p *pit.Pit, progressFn session.ProgressFunc) (Result, error) {
	if err := rdr.Validate(); err != nil {
		return Result{}, fmt.Errorf("archiveflash: %w", err)
	}

	tr := rdr.Archive()
	var result Result

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("archiveflash: read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		stem := fileStem(hdr.Name)
		entry, ok := p.EntryByName(stem)
		if !ok {
			log.Debugf("skipping %s: no partition named %q", hdr.Name, stem)
			result.Skipped = append(result.Skipped, hdr.Name)
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return result, fmt.Errorf("archiveflash: read %s: %w", hdr.Name, err)
		}

		log.Infof("flashing %s (%d bytes) to partition %q", hdr.Name, len(data), stem)
		if err := sess.Flash(data, entry, progressFn); err != nil {
			return result, fmt.Errorf("archiveflash: flash %s: %w", hdr.Name, err)
		}
		result.Flashed = append(result.Flashed, hdr.Name)
	}

	return result, nil
}

// fileStem returns name's base with every extension stripped, matching
// how Odin archives name their members ("boot.img.lz4" -> "boot").
func fileStem(name string) string {
	base := path.Base(name)
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		return base[:idx]
	}
	return base
}
