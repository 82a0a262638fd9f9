package capture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoFrames is returned when a frame directory holds no decodable images.
	ErrNoFrames = errors.New("no frames found")
	// ErrBadFrame marks a single frame that could not be read or decoded.
	// The source stays usable and the next Read moves on to the following frame.
	ErrBadFrame = errors.New("bad frame")
)

// Source yields decoded frames in order and returns io.EOF after the last one.
// Per-frame failures are wrapped with ErrBadFrame.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// OpenFunc opens a Source for a path.
type OpenFunc func(path string) (Source, error)

// Open dispatches on the path: directories are read as frame sequences and
// anything else goes to openVideo.
func Open(path string, openVideo OpenFunc) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("video source %s: %w", path, err)
	}
	if info.IsDir() {
		return OpenDir(path)
	}
	if openVideo == nil {
		return nil, fmt.Errorf("no video decoder available for %s", path)
	}
	return openVideo(path)
}

// Opener binds a video decoder into an OpenFunc that also accepts directories.
func Opener(openVideo OpenFunc) OpenFunc {
	return func(path string) (Source, error) {
		return Open(path, openVideo)
	}
}

// DirSource reads JPEG and PNG files from a directory in name order.
type DirSource struct {
	files []string
	next  int
}

func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoFrames)
	}
	sort.Strings(files)

	return &DirSource{files: files}, nil
}

func (d *DirSource) Read() (image.Image, error) {
	if d.next >= len(d.files) {
		return nil, io.EOF
	}
	path := d.files[d.next]
	d.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrBadFrame, filepath.Base(path), err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrBadFrame, filepath.Base(path), err)
	}
	return img, nil
}

// Len returns the number of frames in the directory.
func (d *DirSource) Len() int {
	return len(d.files)
}

func (d *DirSource) Close() error {
	d.next = len(d.files)
	return nil
}
