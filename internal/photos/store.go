// Package photos manages plant photo files: the per-user, per-plant folder
// layout under the upload root, upload ingest with type sniffing, EXIF
// capture dates and HEIC conversion.
//
// Files live at <root>/<userID>/<slug>/<file> and are addressed by public
// paths of the form /uploads/<userID>/<slug>/<file>.
package photos

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// PublicPrefix is the URL prefix under which the upload root is served.
const PublicPrefix = "/uploads"

// TempFolder holds a user's uploads not yet attached to a plant.
const TempFolder = "tmp"

// Store reads and writes photo files below a root filesystem.
type Store struct {
	fs billy.Filesystem
}

// NewStore returns a Store over fs, whose root is the upload directory.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOSStore creates root if needed and returns a Store bound to it.
func NewOSStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload root: %w", err)
	}
	return NewStore(osfs.New(root)), nil
}

// Root returns the upload directory as seen by the operating system, or ""
// for in-memory stores.
func (s *Store) Root() string {
	return s.fs.Root()
}

// Filesystem exposes the underlying filesystem, for serving files.
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

func userDir(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// PlantDir returns the root-relative folder of a plant.
func PlantDir(userID int64, plantName string) string {
	return path.Join(userDir(userID), SanitizePlantName(plantName))
}

// TempDir returns the root-relative temp folder of a user.
func TempDir(userID int64) string {
	return path.Join(userDir(userID), TempFolder)
}

// PublicPath converts a root-relative path into its public form.
func PublicPath(rel string) string {
	return PublicPrefix + "/" + strings.TrimPrefix(path.Clean("/"+rel), "/")
}

// RelPath converts a public path into a root-relative path. Paths outside
// the upload root are rejected with ErrInvalidPath.
func RelPath(public string) (string, error) {
	if !strings.HasPrefix(public, PublicPrefix+"/") {
		return "", types.ErrInvalidPath
	}
	rest := strings.TrimPrefix(public, PublicPrefix+"/")
	for _, seg := range strings.Split(rest, "/") {
		if seg == ".." {
			return "", types.ErrInvalidPath
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+rest), "/")
	if rel == "" {
		return "", types.ErrInvalidPath
	}
	return rel, nil
}

// Segments splits a public path into its root-relative segments.
func Segments(public string) ([]string, error) {
	rel, err := RelPath(public)
	if err != nil {
		return nil, err
	}
	return strings.Split(rel, "/"), nil
}

// IsTemp reports whether public lies in the temp folder of userID.
func IsTemp(userID int64, public string) bool {
	rel, err := RelPath(public)
	if err != nil {
		return false
	}
	return path.Dir(rel) == TempDir(userID)
}

// InPlantFolder reports whether public already lies in the plant's folder.
func InPlantFolder(userID int64, plantName, public string) bool {
	rel, err := RelPath(public)
	if err != nil {
		return false
	}
	return path.Dir(rel) == PlantDir(userID, plantName)
}

// PlantFolder creates the plant's folder if needed and returns it.
func (s *Store) PlantFolder(userID int64, plantName string) (string, error) {
	dir := PlantDir(userID, plantName)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating plant folder %s: %w", dir, err)
	}
	return dir, nil
}

// DeletePlantFolder removes the plant's folder and everything in it.
func (s *Store) DeletePlantFolder(userID int64, plantName string) error {
	dir := PlantDir(userID, plantName)
	if err := util.RemoveAll(s.fs, dir); err != nil {
		return fmt.Errorf("removing plant folder %s: %w", dir, err)
	}
	return nil
}

// DeleteUserFolders removes every folder of a user, temp uploads included.
func (s *Store) DeleteUserFolders(userID int64) error {
	if err := util.RemoveAll(s.fs, userDir(userID)); err != nil {
		return fmt.Errorf("removing folders of user %d: %w", userID, err)
	}
	return nil
}

// exists reports whether rel is present.
func (s *Store) exists(rel string) (bool, error) {
	_, err := s.fs.Stat(rel)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}
}

// Exists reports whether the file behind a public path is present.
func (s *Store) Exists(public string) (bool, error) {
	rel, err := RelPath(public)
	if err != nil {
		return false, err
	}
	return s.exists(rel)
}

// Remove deletes the file behind a public path. A missing file is not an
// error.
func (s *Store) Remove(public string) error {
	rel, err := RelPath(public)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	return nil
}

// Open opens the file behind a public path for reading.
func (s *Store) Open(public string) (billy.File, error) {
	rel, err := RelPath(public)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(rel)
}

// write stores r at rel and returns the number of bytes written.
func (s *Store) write(rel string, r io.Reader) (int64, error) {
	if err := s.fs.MkdirAll(path.Dir(rel), 0o755); err != nil {
		return 0, fmt.Errorf("creating folder for %s: %w", rel, err)
	}
	f, err := s.fs.Create(rel)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", rel, err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		s.fs.Remove(rel)
		return 0, fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", rel, err)
	}
	return n, nil
}

// Save writes r as filename into the plant's folder, or into the user's
// temp folder when plantName is empty. It returns the public path and size.
func (s *Store) Save(userID int64, plantName, filename string, r io.Reader) (string, int64, error) {
	dir := TempDir(userID)
	if plantName != "" {
		dir = PlantDir(userID, plantName)
	}
	rel := path.Join(dir, path.Base(filename))
	n, err := s.write(rel, r)
	if err != nil {
		return "", 0, err
	}
	return PublicPath(rel), n, nil
}

// CopyIn copies a file from the operating system into the plant's folder
// under newName and returns its public path.
func (s *Store) CopyIn(userID int64, plantName, srcPath, newName string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	public, _, err := s.Save(userID, plantName, newName, src)
	return public, err
}

// moveRel renames from to to, creating the destination folder. When the
// filesystem cannot rename, the file is copied and the source removed.
func (s *Store) moveRel(from, to string) error {
	if err := s.fs.MkdirAll(path.Dir(to), 0o755); err != nil {
		return fmt.Errorf("creating folder for %s: %w", to, err)
	}
	if err := s.fs.Rename(from, to); err == nil {
		return nil
	}
	src, err := s.fs.Open(from)
	if err != nil {
		return fmt.Errorf("opening %s: %w", from, err)
	}
	if _, err := s.write(to, src); err != nil {
		src.Close()
		return err
	}
	src.Close()
	if err := s.fs.Remove(from); err != nil {
		return fmt.Errorf("removing %s: %w", from, err)
	}
	return nil
}

// Move moves the file behind a public path to a root-relative destination
// and returns the new public path.
func (s *Store) Move(public, toRel string) (string, error) {
	from, err := RelPath(public)
	if err != nil {
		return "", err
	}
	if from == toRel {
		return public, nil
	}
	if err := s.moveRel(from, toRel); err != nil {
		return "", err
	}
	return PublicPath(toRel), nil
}

// MoveToPlantFolder moves a file into the plant's folder, keeping its name,
// and returns the new public path. Files already there are left alone.
func (s *Store) MoveToPlantFolder(userID int64, public, plantName string) (string, error) {
	if InPlantFolder(userID, plantName, public) {
		return public, nil
	}
	rel, err := RelPath(public)
	if err != nil {
		return "", err
	}
	return s.Move(public, path.Join(PlantDir(userID, plantName), path.Base(rel)))
}

// RenamePlantFolder moves a plant's files from the folder of oldName to the
// folder of newName. It reports whether anything moved.
func (s *Store) RenamePlantFolder(userID int64, oldName, newName string) (bool, error) {
	from, to := PlantDir(userID, oldName), PlantDir(userID, newName)
	if from == to {
		return false, nil
	}
	ok, err := s.exists(from)
	if err != nil || !ok {
		return false, err
	}
	ok, err = s.exists(to)
	if err != nil {
		return false, err
	}
	if !ok {
		if err := s.fs.Rename(from, to); err == nil {
			return true, nil
		}
	}

	// Merge file by file when the target exists or the rename failed.
	entries, err := s.fs.ReadDir(from)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", from, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := s.moveRel(path.Join(from, e.Name()), path.Join(to, e.Name())); err != nil {
			return false, err
		}
	}
	if err := util.RemoveAll(s.fs, from); err != nil {
		return false, fmt.Errorf("removing %s: %w", from, err)
	}
	return true, nil
}

// RelocatePath rewrites a public path in the folder of oldName to the same
// file in the folder of newName. Other paths are returned unchanged.
func RelocatePath(userID int64, public, oldName, newName string) string {
	rel, err := RelPath(public)
	if err != nil || path.Dir(rel) != PlantDir(userID, oldName) {
		return public
	}
	return PublicPath(path.Join(PlantDir(userID, newName), path.Base(rel)))
}

// RootFiles lists the names of regular files sitting directly in the upload
// root.
func (s *Store) RootFiles() ([]string, error) {
	entries, err := s.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading upload root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
