//go:build !((linux && cgo) || windows || darwin)

package beep

import (
	"log/slog"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Speaker output needs cgo on Linux.
const AudioAvailable = false

// Supported reports whether the service can decode the given source.
func Supported(string) bool { return false }

// Service rejects every source in builds without audio output.
type Service struct {
	events chan domain.MediaEvent
}

// NewService creates a media service that cannot play anything.
func NewService(*slog.Logger) *Service {
	events := make(chan domain.MediaEvent)
	close(events)
	return &Service{events: events}
}

func (s *Service) Load(source string) (domain.MediaHandle, error) {
	return domain.InvalidMediaHandle, domain.NewMediaError("load", source, "speaker unavailable", domain.ErrAudioUnavailable)
}

func (s *Service) Start(domain.MediaHandle) error       { return domain.ErrAudioUnavailable }
func (s *Service) Pause(domain.MediaHandle) error       { return domain.ErrAudioUnavailable }
func (s *Service) Seek(domain.MediaHandle, int64) error { return domain.ErrAudioUnavailable }
func (s *Service) Release(domain.MediaHandle) error     { return domain.ErrInvalidMediaHandle }
func (s *Service) Events() <-chan domain.MediaEvent     { return s.events }
func (s *Service) Close() error                         { return nil }
func (s *Service) Position(domain.MediaHandle) (int64, error) {
	return 0, domain.ErrAudioUnavailable
}

var _ ports.MediaService = (*Service)(nil)
