// Package filesystem provides a track source that scans local music directories.
package filesystem

import (
	"cmp"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// UnknownArtist is used for files without an artist tag.
const UnknownArtist = "<Unknown>"

// DefaultExtensions are the audio file types picked up by a scan.
var DefaultExtensions = []string{".mp3", ".wav", ".flac", ".ogg"}

// Option configures a Source.
type Option func(*Source)

// WithExtensions replaces the accepted file extensions.
func WithExtensions(exts ...string) Option {
	return func(s *Source) {
		s.extensions = normalizeExtensions(exts)
	}
}

// WithHidden includes dot-files and dot-directories in scans.
func WithHidden(include bool) Option {
	return func(s *Source) {
		s.includeHidden = include
	}
}

// Source walks a set of root directories and reads track tags.
// It implements ports.TrackSource.
type Source struct {
	logger        *slog.Logger
	roots         []string
	extensions    map[string]bool
	includeHidden bool
}

// New creates a source over the given root directories.
func New(logger *slog.Logger, roots []string, opts ...Option) *Source {
	s := &Source{
		logger:     logger,
		roots:      append([]string(nil), roots...),
		extensions: normalizeExtensions(DefaultExtensions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeExtensions(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Roots returns the scanned directories.
func (s *Source) Roots() []string {
	return append([]string(nil), s.roots...)
}

func (s *Source) hidden(name string) bool {
	return !s.includeHidden && len(name) > 1 && strings.HasPrefix(name, ".")
}

// Scan walks every root and returns the tracks sorted by title.
// Missing roots are skipped with a warning; unreadable entries are skipped.
func (s *Source) Scan(ctx context.Context) ([]domain.TrackRef, error) {
	var tracks []domain.TrackRef
	seen := make(map[string]bool)

	for _, root := range s.roots {
		if _, err := os.Stat(root); err != nil {
			s.logger.Warn("skipping library root", slog.String("root", root), slog.Any("error", err))
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Debug("skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && s.hidden(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if s.hidden(d.Name()) || !s.extensions[extOf(path)] {
				return nil
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			if seen[abs] {
				return nil
			}
			seen[abs] = true

			tracks = append(tracks, readTrack(abs))
			return nil
		})
		if err != nil {
			return nil, domain.NewMediaError("scan", root, "library walk aborted", err)
		}
	}

	slices.SortStableFunc(tracks, func(a, b domain.TrackRef) int {
		if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})

	s.logger.Debug("library scanned", slog.Int("roots", len(s.roots)), slog.Int("tracks", len(tracks)))
	return tracks, nil
}

// TrackID derives the stable identifier of a file path.
func TrackID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

// AlbumKey derives the art lookup key of an album. Returns "" without an album name.
func AlbumKey(artist, album string) string {
	if album == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(artist+"\x00"+album)).String()
}

// readTrack builds a TrackRef from the file's tags, falling back to the file name.
func readTrack(path string) domain.TrackRef {
	base := filepath.Base(path)
	track := domain.TrackRef{
		ID:     TrackID(path),
		Title:  strings.TrimSuffix(base, filepath.Ext(base)),
		Artist: UnknownArtist,
		Source: path,
	}

	file, err := os.Open(path)
	if err != nil {
		return track
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		return track
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		track.Title = title
	}
	if artist := strings.TrimSpace(metadata.Artist()); artist != "" {
		track.Artist = artist
	}

	albumArtist := strings.TrimSpace(metadata.AlbumArtist())
	if albumArtist == "" {
		albumArtist = track.Artist
	}
	track.AlbumKey = AlbumKey(albumArtist, strings.TrimSpace(metadata.Album()))

	return track
}

// Verify interface implementation
var _ ports.TrackSource = (*Source)(nil)
