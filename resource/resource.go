package resource

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/karrick/godirwalk"
	"github.com/patrickmn/go-cache"

	"github.com/ghostkernel/ghostio/config"
	"github.com/ghostkernel/ghostio/stdio"
)

var ErrInvalidName = errors.Sentinel("resource: invalid resource name")

// Resource is a named file read completely into memory.
type Resource struct {
	Name string `json:"name"`
	Path string `json:"path"`
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

// Size returns the number of bytes of the resource.
func (r *Resource) Size() int64 {
	return int64(len(r.Data))
}

// Loader reads named resources from a directory through the stream layer and
// keeps recently used ones in memory.
type Loader struct {
	reg   *stdio.Registry
	cfg   config.ResourceConfiguration
	cache *cache.Cache
}

// NewLoader returns a loader that opens files through reg.
func NewLoader(reg *stdio.Registry, cfg config.ResourceConfiguration) *Loader {
	return &Loader{
		reg:   reg,
		cfg:   cfg,
		cache: cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// Path returns the location of the file holding the named resource.
func (l *Loader) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return "", errors.WithDetails(ErrInvalidName, "name", name)
	}
	return filepath.Join(l.cfg.Directory, name+l.cfg.Extension), nil
}

// LoadPath reads the file at path into memory and names it name. Results are
// not cached.
func (l *Loader) LoadPath(path string, name string) (*Resource, error) {
	s, err := l.reg.Open(path, "r")
	if err != nil {
		return nil, errors.WrapIf(err, "resource: failed to open resource file")
	}
	data, err := io.ReadAll(s)
	if cerr := s.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.WrapIf(err, "resource: failed to read resource file")
	}
	return &Resource{
		Name: name,
		Path: path,
		MIME: mimetype.Detect(data).String(),
		Data: data,
	}, nil
}

// System loads the named resource from the resource directory.
func (l *Loader) System(name string) (*Resource, error) {
	if v, ok := l.cache.Get(name); ok {
		return v.(*Resource), nil
	}
	p, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	r, err := l.LoadPath(p, name)
	if err != nil {
		return nil, err
	}
	l.cache.Set(name, r, cache.DefaultExpiration)
	return r, nil
}

// Default loads the resource used in place of one that cannot be found.
func (l *Loader) Default() (*Resource, error) {
	return l.System(l.cfg.Default)
}

// Get loads the named resource, falling back to the default resource when it
// cannot be loaded.
func (l *Loader) Get(name string) (*Resource, error) {
	r, err := l.System(name)
	if err == nil {
		return r, nil
	}
	log.WithFields(log.Fields{"name": name, "error": err}).Debug("falling back to default resource")
	r, derr := l.Default()
	if derr != nil {
		return nil, errors.Combine(err, derr)
	}
	return r, nil
}

// List returns the names of the resources in the resource directory, in
// sorted order.
func (l *Loader) List() ([]string, error) {
	entries, err := godirwalk.ReadDirnames(l.cfg.Directory, nil)
	if err != nil {
		return nil, errors.Wrap(err, "resource: failed to read resource directory")
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e, l.cfg.Extension) && len(e) > len(l.cfg.Extension) {
			names = append(names, strings.TrimSuffix(e, l.cfg.Extension))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Forget drops the named resource from memory so that the next load reads
// it again.
func (l *Loader) Forget(name string) {
	l.cache.Delete(name)
}
