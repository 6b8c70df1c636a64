//go:build (linux && cgo) || windows || darwin

// Package beep implements ports.MediaService on the gopxl/beep speaker.
package beep

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// SampleRate is the output rate of the speaker. Sources are resampled to it.
const SampleRate = beep.SampleRate(44100)

const eventBuffer = 64

// decoder opens a stream for one file type.
type decoder func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decoder{
	".mp3":  func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) },
	".wav":  func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) },
	".flac": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(f) },
	".ogg":  func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) },
}

// Supported reports whether the service can decode the given source.
func Supported(source string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(source))]
	return ok
}

// Service plays files through the system speaker.
// Sources are decoded in the background; the speaker is initialized on the first Start.
//
// Thread-safety: This implementation is thread-safe. Callbacks from the speaker
// never take s.mu while holding the speaker lock.
type Service struct {
	logger *slog.Logger

	mu           sync.Mutex
	media        map[domain.MediaHandle]*track
	nextHandle   domain.MediaHandle
	events       chan domain.MediaEvent
	closed       bool
	speakerReady bool

	prepares sync.WaitGroup
}

type track struct {
	source       string
	file         *os.File
	streamer     beep.StreamSeekCloser
	format       beep.Format
	ctrl         *beep.Ctrl
	ready        bool
	startPending bool
	queued       bool
}

// NewService creates a speaker-backed media service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger:     logger,
		media:      make(map[domain.MediaHandle]*track),
		nextHandle: 1,
		events:     make(chan domain.MediaEvent, eventBuffer),
	}
}

// Load validates the source and decodes it in the background.
func (s *Service) Load(source string) (domain.MediaHandle, error) {
	if source == "" {
		return domain.InvalidMediaHandle, domain.ErrInvalidSource
	}
	decode, ok := decoders[strings.ToLower(filepath.Ext(source))]
	if !ok {
		return domain.InvalidMediaHandle, domain.NewMediaError("load", source, "no decoder for file type", domain.ErrUnsupportedFormat)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.InvalidMediaHandle, domain.ErrClosed
	}

	handle := s.nextHandle
	s.nextHandle++
	s.media[handle] = &track{source: source}

	s.prepares.Add(1)
	go s.prepare(handle, source, decode)

	return handle, nil
}

func (s *Service) prepare(handle domain.MediaHandle, source string, decode decoder) {
	defer s.prepares.Done()

	file, err := os.Open(source)
	if err != nil {
		s.failPrepare(handle, domain.NewMediaError("prepare", source, "failed to open file", err))
		return
	}
	streamer, format, err := decode(file)
	if err != nil {
		_ = file.Close()
		s.failPrepare(handle, domain.NewMediaError("prepare", source, "failed to decode", err))
		return
	}

	var out beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		out = beep.Resample(4, format.SampleRate, SampleRate, streamer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok || s.closed {
		// Released while decoding
		_ = streamer.Close()
		_ = file.Close()
		return
	}

	t.file = file
	t.streamer = streamer
	t.format = format
	t.ctrl = &beep.Ctrl{Streamer: out, Paused: true}
	t.ready = true

	durationMs := format.SampleRate.D(streamer.Len()).Milliseconds()
	s.emitLocked(domain.MediaEvent{Kind: domain.MediaReady, Handle: handle, DurationMs: durationMs})

	if t.startPending {
		t.startPending = false
		if err := s.playLocked(handle, t); err != nil {
			s.logger.Warn("deferred start failed", slog.String("source", source), slog.Any("error", err))
		}
	}
}

func (s *Service) failPrepare(handle domain.MediaHandle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.media[handle]; !ok {
		return
	}
	delete(s.media, handle)
	s.emitLocked(domain.MediaEvent{Kind: domain.MediaFailed, Handle: handle, Err: err})
}

// Start starts or resumes playback. A handle still decoding starts once ready.
func (s *Service) Start(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if !t.ready {
		t.startPending = true
		return nil
	}
	return s.playLocked(handle, t)
}

func (s *Service) initSpeakerLocked() error {
	if s.speakerReady {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		return err
	}
	s.speakerReady = true
	return nil
}

func (s *Service) playLocked(handle domain.MediaHandle, t *track) error {
	if err := s.initSpeakerLocked(); err != nil {
		return domain.NewMediaError("start", t.source, "failed to initialize speaker", err)
	}

	if !t.queued {
		if err := s.rewindIfEndedLocked(t); err != nil {
			return err
		}
	}

	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()

	if !t.queued {
		t.queued = true
		ctrl := t.ctrl
		speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
			// Runs on the speaker goroutine with the speaker lock held.
			go s.finished(handle, ctrl)
		})))
	}
	return nil
}

// rewindIfEndedLocked seeks a drained decoder back to the first sample, so a
// Start after MediaEnded plays the track again. Caller must hold s.mu.
func (s *Service) rewindIfEndedLocked(t *track) error {
	var err error
	s.withSpeakerLocked(func() {
		if t.streamer.Position() >= t.streamer.Len() {
			err = t.streamer.Seek(0)
		}
	})
	if err != nil {
		return domain.NewMediaError("start", t.source, "failed to rewind", err)
	}
	return nil
}

// finished reports the end of a queued stream unless it was released or replaced.
func (s *Service) finished(handle domain.MediaHandle, ctrl *beep.Ctrl) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok || t.ctrl != ctrl {
		return
	}
	t.queued = false

	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()

	s.emitLocked(domain.MediaEvent{Kind: domain.MediaEnded, Handle: handle})
}

// Pause pauses playback, preserving the position.
func (s *Service) Pause(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if !t.ready {
		t.startPending = false
		return nil
	}

	s.withSpeakerLocked(func() { t.ctrl.Paused = true })
	return nil
}

// Seek moves the playback position.
func (s *Service) Seek(handle domain.MediaHandle, positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if !t.ready {
		return domain.ErrNotInitialized
	}

	sample := t.format.SampleRate.N(time.Duration(positionMs) * time.Millisecond)
	if positionMs < 0 || sample > t.streamer.Len() {
		return domain.ErrInvalidPosition
	}

	var err error
	s.withSpeakerLocked(func() { err = t.streamer.Seek(sample) })
	if err != nil {
		return domain.NewMediaError("seek", t.source, "decoder seek failed", err)
	}
	return nil
}

// Position returns the current playback position.
func (s *Service) Position(handle domain.MediaHandle) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok {
		return 0, domain.ErrInvalidMediaHandle
	}
	if !t.ready {
		return 0, nil
	}

	var pos int
	s.withSpeakerLocked(func() { pos = t.streamer.Position() })
	return t.format.SampleRate.D(pos).Milliseconds(), nil
}

// Release stops playback and frees the handle.
func (s *Service) Release(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	delete(s.media, handle)
	s.releaseLocked(t)
	return nil
}

func (s *Service) releaseLocked(t *track) {
	if !t.ready {
		return
	}

	// A nil streamer drains the control, so the mixer drops it.
	s.withSpeakerLocked(func() {
		t.ctrl.Paused = false
		t.ctrl.Streamer = nil
	})
	if err := t.streamer.Close(); err != nil {
		s.logger.Debug("failed to close decoder", slog.String("source", t.source), slog.Any("error", err))
	}
	_ = t.file.Close()
}

// withSpeakerLocked runs fn under the speaker lock once the speaker is running.
func (s *Service) withSpeakerLocked(fn func()) {
	if !s.speakerReady {
		fn()
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	fn()
}

// Events returns the channel of asynchronous media signals.
func (s *Service) Events() <-chan domain.MediaEvent {
	return s.events
}

// Close releases every handle, waits for pending decodes and shuts the speaker down.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for handle, t := range s.media {
		s.releaseLocked(t)
		delete(s.media, handle)
	}
	close(s.events)
	speakerReady := s.speakerReady
	s.mu.Unlock()

	s.prepares.Wait()
	if speakerReady {
		speaker.Clear()
		speaker.Close()
	}
	return nil
}

// emitLocked sends an event without blocking. Callers must hold s.mu.
func (s *Service) emitLocked(event domain.MediaEvent) {
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.logger.Warn("media event dropped, channel full",
			slog.String("kind", event.Kind.String()),
			slog.Int64("handle", int64(event.Handle)))
	}
}

var _ ports.MediaService = (*Service)(nil)
