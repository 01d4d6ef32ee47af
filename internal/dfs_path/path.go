package dfs_path

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	Separator = "/"
	reserved  = ":"
)

// Path is an immutable, slash-delimited location in the distributed file
// system. The zero value is the root directory.
//
// Equality, hashing and ordering are all defined on the canonical string, so
// a Path can be compared with == and used directly as a map key.
type Path struct {
	canonical string
}

// Root returns the path of the root directory.
func Root() Path {
	return Path{}
}

// Parse builds a Path from its string form. The string must begin with a
// forward slash; empty components are dropped.
func Parse(s string) (Path, error) {
	if s == "" || !strings.HasPrefix(s, Separator) {
		return Path{}, ErrInvalidPath
	}

	var components []string
	for _, c := range strings.Split(s, Separator) {
		if c == "" {
			continue
		}
		if strings.Contains(c, reserved) {
			return Path{}, ErrInvalidPath
		}
		components = append(components, c)
	}
	return fromComponents(components), nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and constants.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func fromComponents(components []string) Path {
	if len(components) == 0 {
		return Path{}
	}
	return Path{canonical: Separator + strings.Join(components, Separator)}
}

// Append returns a new path with component added at the end.
func (p Path) Append(component string) (Path, error) {
	if !validComponent(component) {
		return Path{}, ErrInvalidComponent
	}
	return Path{canonical: p.base() + component}, nil
}

func (p Path) base() string {
	if p.IsRoot() {
		return Separator
	}
	return p.canonical + Separator
}

func validComponent(c string) bool {
	return c != "" && !strings.Contains(c, Separator) && !strings.Contains(c, reserved)
}

// Components returns a copy of the component sequence. Root has none.
func (p Path) Components() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(p.canonical[1:], Separator)
}

func (p Path) IsRoot() bool {
	return p.canonical == ""
}

func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, ErrRootHasNoParent
	}
	c := p.Components()
	return fromComponents(c[:len(c)-1]), nil
}

func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", ErrRootHasNoParent
	}
	return p.canonical[strings.LastIndex(p.canonical, Separator)+1:], nil
}

// IsSubpath reports whether other is a prefix of p, component by component.
// Every path is a subpath of itself, and /a is not a subpath of /ab.
func (p Path) IsSubpath(other Path) bool {
	mine, theirs := p.Components(), other.Components()
	if len(theirs) > len(mine) {
		return false
	}
	return slices.Equal(mine[:len(theirs)], theirs)
}

// Compare orders paths by their canonical strings. Callers that need several
// paths locked at once acquire them in increasing order.
func (p Path) Compare(other Path) int {
	return strings.Compare(p.String(), other.String())
}

func (p Path) String() string {
	if p.IsRoot() {
		return Separator
	}
	return p.canonical
}

func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ToFile maps p onto the local filesystem below root.
func (p Path) ToFile(root string) string {
	return filepath.Join(root, filepath.FromSlash(p.String()))
}

// List returns the path of every regular file below the local directory root.
func List(root string) ([]Path, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	var paths []Path
	err = filepath.WalkDir(root, func(local string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, local)
		if err != nil {
			return err
		}
		p, err := Parse(Separator + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
