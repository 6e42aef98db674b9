package resourcecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/icyseptember2237/resourcecache/assets"
)

const (
	appScheme  = "app:///"
	fileScheme = "file://"
)

var scriptExtensions = map[string]string{
	TypeEngineJs:  ".js",
	TypeEngineLua: ".lua",
	TypeEngineGo:  ".gos",
}

// DefaultScriptPath returns the logical path of the bundled counterpart
// script for an engine type.
func DefaultScriptPath(engineType string) string {
	return appScheme + "Scripts/ResourceCache" + scriptExtensions[engineType]
}

// ScriptLoader evaluates scripts addressed by logical path. app:/// paths are
// read from a file system, file:// paths are handed to the engine directly.
type ScriptLoader struct {
	fsys fs.FS
}

// NewScriptLoader returns a loader reading app:/// paths from fsys, or from
// the bundled assets when fsys is nil.
func NewScriptLoader(fsys fs.FS) *ScriptLoader {
	if fsys == nil {
		fsys = assets.FS
	}
	return &ScriptLoader{fsys: fsys}
}

// NewDirScriptLoader reads app:/// paths from dir, falling back to the
// bundled assets for files dir does not contain.
func NewDirScriptLoader(dir string) *ScriptLoader {
	return &ScriptLoader{fsys: overlayFS{top: os.DirFS(dir), base: assets.FS}}
}

// Load evaluates the script at logical in e. It must run on the runtime
// goroutine that owns e.
func (l *ScriptLoader) Load(e Engine, logical string) error {
	switch {
	case strings.HasPrefix(logical, appScheme):
		name := path.Clean(strings.TrimPrefix(logical, appScheme))
		source, err := fs.ReadFile(l.fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Wrap(CodeScriptNotFound, "load script "+logical, err)
			}
			return fmt.Errorf("load script %s: %w", logical, err)
		}
		if err := e.ParseString(string(source)); err != nil {
			return fmt.Errorf("run script %s: %w", logical, err)
		}
		return nil
	case strings.HasPrefix(logical, fileScheme):
		name := strings.TrimPrefix(logical, fileScheme)
		if _, err := os.Stat(name); err != nil {
			return Wrap(CodeScriptNotFound, "load script "+logical, err)
		}
		if err := e.ParseFile(name); err != nil {
			return fmt.Errorf("run script %s: %w", logical, err)
		}
		return nil
	}
	return NewError(CodeScriptNotFound, fmt.Sprintf("unsupported script path %q", logical))
}

// overlayFS serves files from top, falling back to base.
type overlayFS struct {
	top  fs.FS
	base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.top.Open(name)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return o.base.Open(name)
	}
	return nil, err
}
