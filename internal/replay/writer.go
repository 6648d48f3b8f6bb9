package replay

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// streamWriter owns the single .tvd.tmp file handle: the header and trailer
// are written straight to disk uncompressed, while every frame in between
// flows through a zstd encoder wrapping the same file. Grounded on the
// teacher's Writer, which keeps a mutex-guarded *os.File plus a
// *zstd.Encoder and flushes frames through it; generalized here to a single
// file instead of a paired events/frames bundle.
type streamWriter struct {
	mu   sync.Mutex
	file *os.File
	zw   *zstd.Encoder
}

// createStream creates path (failing if it already exists, since .tvd.tmp
// should never be reused across recordings) and writes the fixed header.
func createStream(path string, header fileHeader) (*streamWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	if err := writeFileHeader(f, header); err != nil {
		f.Close()
		return nil, err
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &streamWriter{file: f, zw: zw}, nil
}

// frameParts are the already-encoded byte regions of a single frame, in
// write order. writeFrame prefixes them with the u32 frameSize and i32
// serverTime fields per the on-disk layout.
type frameParts struct {
	EntityBitmask []byte
	EntityDeltas  []byte
	PlayerBitmask []byte
	PlayerDeltas  []byte
	CSChanges     []byte
	Commands      []byte
}

func (p frameParts) size() int {
	return 4 + len(p.EntityBitmask) + len(p.EntityDeltas) + len(p.PlayerBitmask) +
		len(p.PlayerDeltas) + len(p.CSChanges) + len(p.Commands)
}

// writeFrame appends one compressed frame to the stream.
func (s *streamWriter) writeFrame(serverTime int32, parts frameParts) error {
	if s == nil {
		return fmt.Errorf("replay: stream not initialised")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	frameSize := uint32(parts.size())
	if err := binary.Write(s.zw, binary.LittleEndian, frameSize); err != nil {
		return err
	}
	if err := binary.Write(s.zw, binary.LittleEndian, serverTime); err != nil {
		return err
	}
	for _, chunk := range [][]byte{
		parts.EntityBitmask, parts.EntityDeltas,
		parts.PlayerBitmask, parts.PlayerDeltas,
		parts.CSChanges, parts.Commands,
	} {
		if _, err := s.zw.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// closeAndPatch flushes and closes the zstd stream, appends the trailer, and
// patches the duration placeholder at durationOffset — in that order, so the
// trailer always reflects a fully-flushed body.
func (s *streamWriter) closeAndPatch(durationMs uint32, trailerKV map[string][]byte) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.zw.Close(); err != nil {
		s.file.Close()
		return err
	}
	if trailerKV == nil {
		trailerKV = map[string][]byte{}
	}
	trailerKV["dur"] = encodeDurationValue(durationMs)
	if err := writeTrailer(s.file, trailerKV); err != nil {
		s.file.Close()
		return err
	}
	if _, err := s.file.WriteAt(encodeDurationValue(durationMs), durationOffset); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// abort closes the stream without writing a trailer or patching the
// duration, used when a recording is discarded (e.g. on overflow).
func (s *streamWriter) abort() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zw.Close()
	return s.file.Close()
}

var _ io.Writer = (*streamWriter)(nil)

func (s *streamWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zw.Write(p)
}
