// file_utils.go - collecting routed captures from the output directory
package diskmanager

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tphakala/motionsort/internal/capture"
	"github.com/tphakala/motionsort/internal/store"
)

// FileInfo is one routed capture eligible for retention.
type FileInfo struct {
	Path string
	Name capture.Name
	Kind string // image or video
	Size int64
}

// collectFiles lists the routed captures in dir. Files whose extension is not in kinds
// are ignored; files whose names do not parse are counted and left alone.
func (c *Cleaner) collectFiles(dir string) (files []FileInfo, unparsable int, err error) {
	exts := make([]string, 0, len(c.kinds))
	for ext := range c.kinds {
		exts = append(exts, ext)
	}

	listing := c.store.Entries(dir, store.Ext(exts...))
	for e := range listing.All() {
		name, perr := capture.Parse(capture.Stem(e.Name))
		if perr != nil {
			unparsable++
			continue
		}
		files = append(files, FileInfo{
			Path: e.Path,
			Name: name,
			Kind: c.kinds[strings.ToLower(extOf(e.Name))],
			Size: e.Size,
		})
	}
	return files, unparsable, listing.Err()
}

// sortOldestFirst orders files by capture time, then path for a stable order.
func sortOldestFirst(files []FileInfo) {
	slices.SortFunc(files, func(a, b FileInfo) int {
		if c := a.Name.Time.Compare(b.Name.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
