package local

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobeaver/uploadguard"
	"github.com/gobwas/glob"
)

// metaDir holds one JSON sidecar per stored file. It is hidden from Match.
const metaDir = ".meta"

// sidecar is what a file's metadata sidecar records
type sidecar struct {
	ContentType  string            `json:"content_type,omitempty"`
	CacheControl string            `json:"cache_control,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Adapter provides a local filesystem implementation of uploadguard.Store
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute storage root
func (a *Adapter) Root() string {
	return a.root
}

// Write implements uploadguard.Store. Content is written to a temporary
// file in the target directory and renamed into place.
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader, options ...uploadguard.WriteOption) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := a.resolve("write", p)
	if err != nil {
		return err
	}

	opts := uploadguard.ApplyWriteOptions(options...)

	if !opts.Overwrite {
		if _, err := os.Stat(fullPath); err == nil {
			return &uploadguard.PathError{Op: "write", Path: p, Err: uploadguard.ErrExist}
		}
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}

	if err := a.writeSidecar(p, sidecar{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		Metadata:     opts.Metadata,
	}); err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}
	return nil
}

// Read implements uploadguard.Store
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("read", p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, pathError("read", p, err)
	}
	return f, nil
}

// Delete implements uploadguard.Store
func (a *Adapter) Delete(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := a.resolve("delete", p)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return pathError("delete", p, err)
	}
	_ = os.Remove(a.sidecarPath(p))
	return nil
}

// FileExists implements uploadguard.Store
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("exists", p)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, pathError("exists", p, err)
	}
	return !info.IsDir(), nil
}

// Stat implements uploadguard.Store
func (a *Adapter) Stat(ctx context.Context, p string) (*uploadguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, err := a.resolve("stat", p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, pathError("stat", p, err)
	}
	if info.IsDir() {
		return nil, &uploadguard.PathError{Op: "stat", Path: p, Err: uploadguard.ErrNotExist}
	}

	fi := a.fileInfo(cleanPath(p), info)
	return &fi, nil
}

// Match implements uploadguard.CanMatch. Results are sorted by path.
func (a *Adapter) Match(ctx context.Context, pattern string) ([]uploadguard.FileInfo, error) {
	g, err := glob.Compile(strings.TrimPrefix(pattern, "/"), '/')
	if err != nil {
		return nil, &uploadguard.PathError{Op: "match", Path: pattern, Err: err}
	}

	var matches []uploadguard.FileInfo
	err = filepath.WalkDir(a.root, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && fullPath != a.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(a.root, fullPath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !g.Match(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		matches = append(matches, a.fileInfo(rel, info))
		return nil
	})
	if err != nil {
		return nil, &uploadguard.PathError{Op: "match", Path: pattern, Err: err}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}

// Checksum implements uploadguard.CanChecksum
func (a *Adapter) Checksum(ctx context.Context, p string, algorithm uploadguard.ChecksumAlgorithm) (string, error) {
	rc, err := a.Read(ctx, p)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	sum, err := uploadguard.CalculateChecksum(rc, algorithm)
	if err != nil {
		return "", &uploadguard.PathError{Op: "checksum", Path: p, Err: err}
	}
	return sum, nil
}

func (a *Adapter) fileInfo(p string, info fs.FileInfo) uploadguard.FileInfo {
	fi := uploadguard.FileInfo{
		Name:    path.Base(p),
		Path:    p,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if sc, err := a.readSidecar(p); err == nil {
		fi.ContentType = sc.ContentType
		fi.Metadata = sc.Metadata
	}
	if fi.ContentType == "" {
		fi.ContentType = mime.TypeByExtension(path.Ext(p))
	}
	return fi
}

func (a *Adapter) sidecarPath(p string) string {
	return filepath.Join(a.root, metaDir, filepath.FromSlash(cleanPath(p))+".json")
}

func (a *Adapter) writeSidecar(p string, sc sidecar) error {
	target := a.sidecarPath(p)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}

func (a *Adapter) readSidecar(p string) (sidecar, error) {
	var sc sidecar
	data, err := os.ReadFile(a.sidecarPath(p))
	if err != nil {
		return sc, err
	}
	err = json.Unmarshal(data, &sc)
	return sc, err
}

// resolve maps a store path onto the filesystem, refusing anything that
// would leave the root or land in the sidecar directory
func (a *Adapter) resolve(op, p string) (string, error) {
	if strings.Contains(p, "..") || strings.ContainsRune(p, '\\') {
		return "", &uploadguard.PathError{Op: op, Path: p, Err: uploadguard.ErrNotAllowed}
	}
	clean := cleanPath(p)
	if clean == "" || clean == metaDir || strings.HasPrefix(clean, metaDir+"/") {
		return "", &uploadguard.PathError{Op: op, Path: p, Err: uploadguard.ErrNotAllowed}
	}

	fullPath := filepath.Join(a.root, filepath.FromSlash(clean))
	if !isPathUnderRoot(a.root, fullPath) {
		return "", &uploadguard.PathError{Op: op, Path: p, Err: uploadguard.ErrNotAllowed}
	}
	return fullPath, nil
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func isPathUnderRoot(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func pathError(op, p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		err = uploadguard.ErrNotExist
	}
	return &uploadguard.PathError{Op: op, Path: p, Err: err}
}

// Ensure Adapter implements interfaces
var (
	_ uploadguard.Store       = (*Adapter)(nil)
	_ uploadguard.CanMatch    = (*Adapter)(nil)
	_ uploadguard.CanChecksum = (*Adapter)(nil)
)
