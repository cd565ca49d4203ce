// Package fs holds the file-system adapters: destination naming, file sinks
// and the persisted transfer report.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxCollisions bounds the search for a free name.
const maxCollisions = 10000

// CollisionResolver places received files in Dir without overwriting.
// It implements ports.PathResolver.
type CollisionResolver struct {
	Dir string
}

// NewCollisionResolver creates a resolver rooted at dir.
func NewCollisionResolver(dir string) *CollisionResolver {
	return &CollisionResolver{Dir: dir}
}

// Exists reports whether something already occupies path.
func (r *CollisionResolver) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Resolve returns Dir/name, or Dir/base(n).ext with the smallest n >= 1 that
// is free. Only the base name of name is used.
func (r *CollisionResolver) Resolve(name string) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("resolve %q: not a file name", name)
	}

	path := filepath.Join(r.Dir, name)
	if !r.Exists(path) {
		return path, nil
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxCollisions; n++ {
		candidate := filepath.Join(r.Dir, fmt.Sprintf("%s(%d)%s", base, n, ext))
		if !r.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("resolve %q: more than %d copies in %s", name, maxCollisions, r.Dir)
}
