package watching

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mutagen-io/treewatch/pkg/logging"
)

// inotifySupported indicates whether or not the inotify backend is available on
// the current platform.
const inotifySupported = true

// minimumInotifyBufferSize is the size of a single maximally sized record. The
// kernel rejects reads into smaller buffers.
const minimumInotifyBufferSize = unix.SizeofInotifyEvent + unix.NAME_MAX + 1

// inotifySource implements Source using inotify. Readiness of the inotify
// descriptor and of a self-pipe used for cancellation is multiplexed with
// epoll.
type inotifySource struct {
	// logger is the source logger.
	logger *logging.Logger
	// descriptor is the inotify file descriptor.
	descriptor int
	// epoll is the epoll file descriptor.
	epoll int
	// pipe holds the read and write ends of the cancellation pipe.
	pipe [2]int
	// buffer is the record read buffer.
	buffer []byte
	// events is the epoll event buffer.
	events [2]unix.EpollEvent
	// lock serializes Signal and Close.
	lock sync.Mutex
	// closed indicates whether or not the source has been closed.
	closed bool
}

// openInotifySource creates a new inotify-based event source.
func openInotifySource(options SourceOptions) (Source, error) {
	// Create the inotify descriptor.
	descriptor, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize inotify: %w", classify(err))
	}

	// Create the cancellation pipe.
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(descriptor)
		return nil, fmt.Errorf("unable to create cancellation pipe: %w", classify(err))
	}

	// Create the epoll descriptor.
	epoll, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(pipe[0])
		unix.Close(pipe[1])
		unix.Close(descriptor)
		return nil, fmt.Errorf("unable to create epoll instance: %w", classify(err))
	}

	// Create the source.
	size := options.readBufferSize()
	if size < minimumInotifyBufferSize {
		size = minimumInotifyBufferSize
	}
	source := &inotifySource{
		logger:     options.Logger,
		descriptor: descriptor,
		epoll:      epoll,
		pipe:       pipe,
		buffer:     make([]byte, size),
	}

	// Register both descriptors for level-triggered read readiness.
	for _, fd := range []int{descriptor, pipe[0]} {
		event := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epoll, unix.EPOLL_CTL_ADD, fd, event); err != nil {
			source.Close()
			return nil, fmt.Errorf("unable to register descriptor with epoll: %w", err)
		}
	}

	// Success.
	return source, nil
}

// AddWatch implements Source.AddWatch.
func (s *inotifySource) AddWatch(path string) (Handle, error) {
	watch, err := unix.InotifyAddWatch(s.descriptor, path, uint32(subscriptionMask|MaskOnlyDirectory))
	if err != nil {
		return 0, classify(err)
	}
	return Handle(watch), nil
}

// RemoveWatch implements Source.RemoveWatch.
func (s *inotifySource) RemoveWatch(handle Handle) error {
	// EINVAL indicates that the kernel has already retired the watch.
	if _, err := unix.InotifyRmWatch(s.descriptor, uint32(handle)); err != nil && err != unix.EINVAL {
		return fmt.Errorf("unable to remove watch: %w", err)
	}
	return nil
}

// Wait implements Source.Wait.
func (s *inotifySource) Wait() (Readiness, error) {
	for {
		// Wait for readiness.
		count, err := unix.EpollWait(s.epoll, s.events[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return ReadinessData, fmt.Errorf("unable to wait for readiness: %w", err)
		}

		// Check for cancellation first, since it takes priority.
		var data bool
		for _, event := range s.events[:count] {
			if int(event.Fd) == s.pipe[0] {
				s.drainPipe()
				return ReadinessCancelled, nil
			} else if int(event.Fd) == s.descriptor {
				data = true
			}
		}
		if data {
			return ReadinessData, nil
		}
	}
}

// drainPipe consumes all pending cancellation signals.
func (s *inotifySource) drainPipe() {
	var buffer [64]byte
	for {
		if n, err := unix.Read(s.pipe[0], buffer[:]); n <= 0 || err != nil {
			return
		}
	}
}

// Read implements Source.Read.
func (s *inotifySource) Read() ([]Record, error) {
	for {
		count, err := unix.Read(s.descriptor, s.buffer)
		if err != nil {
			if err == unix.EINTR {
				continue
			} else if err == unix.EAGAIN {
				return nil, nil
			}
			return nil, fmt.Errorf("unable to read inotify records: %w", err)
		}
		return decodeInotifyRecords(s.buffer[:count])
	}
}

// decodeInotifyRecords decodes a buffer of raw inotify records.
func decodeInotifyRecords(buffer []byte) ([]Record, error) {
	var records []Record
	for len(buffer) > 0 {
		// Ensure that a complete header is available.
		if len(buffer) < unix.SizeofInotifyEvent {
			return records, errors.New("truncated inotify record header")
		}

		// Decode the header.
		record := Record{
			Handle: Handle(int32(binary.NativeEndian.Uint32(buffer[0:4]))),
			Mask:   Mask(binary.NativeEndian.Uint32(buffer[4:8])),
			Cookie: binary.NativeEndian.Uint32(buffer[8:12]),
		}
		nameLength := int(binary.NativeEndian.Uint32(buffer[12:16]))

		// Extract the name, which is padded with null bytes.
		end := unix.SizeofInotifyEvent + nameLength
		if len(buffer) < end {
			return records, errors.New("truncated inotify record name")
		}
		if nameLength > 0 {
			name := buffer[unix.SizeofInotifyEvent:end]
			if terminator := bytes.IndexByte(name, 0); terminator >= 0 {
				name = name[:terminator]
			}
			record.Name = string(name)
		}

		// Record the event and advance.
		records = append(records, record)
		buffer = buffer[end:]
	}
	return records, nil
}

// Signal implements Source.Signal.
func (s *inotifySource) Signal() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return
	}

	// A full pipe already holds a pending signal.
	if _, err := unix.Write(s.pipe[1], []byte{0}); err != nil && err != unix.EAGAIN {
		s.logger.Warnf("Unable to signal inotify source: %v", err)
	}
}

// Close implements Source.Close.
func (s *inotifySource) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	// Closing the inotify descriptor releases any remaining watches.
	var errs []error
	for _, fd := range []int{s.epoll, s.descriptor, s.pipe[0], s.pipe[1]} {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
