package tree

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var separators = strings.NewReplacer("/", "_", `\`, "_", "\x00", "_")

// Sanitize turns a remote name into exactly one local path segment.
func Sanitize(name string) string {
	name = separators.Replace(name)
	switch name {
	case "":
		return "_"
	case ".", "..":
		return strings.Repeat("_", len(name))
	}
	return name
}

// SafeJoin joins the sanitized name to dir and refuses any result outside
// dir.
func SafeJoin(dir, name string) (string, error) {
	seg := Sanitize(name)
	if !filepath.IsLocal(seg) {
		return "", fmt.Errorf("unsafe name %q", name)
	}
	return filepath.Join(dir, seg), nil
}

// namer hands out the local names of one folder level.
type namer struct {
	rename bool
	seen   map[string]int
}

func newNamer(rename bool) *namer {
	return &namer{rename: rename, seen: map[string]int{}}
}

// assign returns the local name for name and whether it collided with an
// earlier sibling. Without renaming a collision keeps the name, so the later
// entry overwrites the earlier one.
func (n *namer) assign(name string, folder bool) (string, bool) {
	name = Sanitize(name)
	count := n.seen[name]
	n.seen[name] = count + 1
	if count == 0 {
		return name, false
	}
	if !n.rename {
		return name, true
	}
	for i := count + 1; ; i++ {
		candidate := numbered(name, i, folder)
		if n.seen[candidate] == 0 {
			n.seen[candidate] = 1
			return candidate, true
		}
	}
}

// numbered turns "report.pdf" into "report_2.pdf" and a folder "data" into "data_2".
func numbered(name string, i int, folder bool) string {
	ext := filepath.Ext(name)
	if folder || ext == name {
		ext = ""
	}
	return name[:len(name)-len(ext)] + "_" + strconv.Itoa(i) + ext
}
