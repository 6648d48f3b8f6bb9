package replay

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// magic and durationOffset are bit-exact per the file format: magic(4) +
// protocol(4) + svFps(4) + maxClients(4) puts the duration placeholder at
// byte offset 16, which StopRecord patches in place at close.
const (
	fileMagic      = "TVD1"
	trailerMagic   = "TVDt"
	protocolVersion = 1
	durationOffset = 16

	csTerminator = 0xFFFF
	maxTrailerKeyLen = 63
)

// csEntry is a single {index, length, bytes} configstring record as it
// appears in the header and in a frame's changed-configstring list.
type csEntry struct {
	Index uint16
	Data  []byte
}

// fileHeader is the fixed-layout prefix of a .tvd file.
type fileHeader struct {
	Protocol     uint32
	SVFPS        uint32
	MaxClients   uint32
	DurationMs   uint32
	MapName      string
	Timestamp    string
	Configstrings []csEntry
}

func writeCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

func readCString(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

// writeFileHeader emits the magic, the fixed scalar fields (with a zero
// duration placeholder to be patched at StopRecord), the map name and
// timestamp, and the configstring list terminated by index 0xFFFF.
func writeFileHeader(w io.Writer, h fileHeader) error {
	if _, err := io.WriteString(w, fileMagic); err != nil {
		return err
	}
	for _, v := range []uint32{protocolVersion, h.SVFPS, h.MaxClients, 0} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := writeCString(w, h.MapName); err != nil {
		return err
	}
	if err := writeCString(w, h.Timestamp); err != nil {
		return err
	}
	for _, cs := range h.Configstrings {
		if err := binary.Write(w, binary.LittleEndian, cs.Index); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(cs.Data))); err != nil {
			return err
		}
		if _, err := w.Write(cs.Data); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, uint16(csTerminator))
}

// readFileHeader parses a .tvd file's fixed prefix, returning an error if the
// magic or protocol version do not match (spec's "format invalid" taxonomy).
func readFileHeader(r *bufio.Reader) (fileHeader, error) {
	var h fileHeader
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, err
	}
	if string(magic) != fileMagic {
		return h, fmt.Errorf("replay: bad magic %q", magic)
	}
	var protocol uint32
	if err := binary.Read(r, binary.LittleEndian, &protocol); err != nil {
		return h, err
	}
	if protocol != protocolVersion {
		return h, fmt.Errorf("replay: unsupported protocol %d", protocol)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.SVFPS); err != nil {
		return h, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.MaxClients); err != nil {
		return h, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.DurationMs); err != nil {
		return h, err
	}
	mapName, err := readCString(r)
	if err != nil {
		return h, err
	}
	h.MapName = mapName
	timestamp, err := readCString(r)
	if err != nil {
		return h, err
	}
	h.Timestamp = timestamp

	for {
		var index uint16
		if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
			return h, err
		}
		if index == csTerminator {
			break
		}
		var length uint16
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return h, err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return h, err
		}
		h.Configstrings = append(h.Configstrings, csEntry{Index: index, Data: data})
	}
	return h, nil
}

// writeTrailer emits the keyed trailer: "TVDt", each {key+NUL, u16 valueLen,
// bytes} entry in deterministic (sorted) key order, an empty-key terminator,
// then a u32 trailer-size-in-bytes covering the magic, every entry, and the
// terminator, plus the size field itself — the minimum size for a trailer
// with zero entries is therefore 4 (magic) + 1 (terminator) + 4 (size) = 9,
// which is what readTrailer treats as the floor for a well-formed trailer.
func writeTrailer(w io.Writer, kv map[string][]byte) error {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		if len(k) > maxTrailerKeyLen {
			return fmt.Errorf("replay: trailer key %q exceeds %d bytes", k, maxTrailerKeyLen)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var body bytes.Buffer
	for _, k := range keys {
		v := kv[k]
		if err := writeCString(&body, k); err != nil {
			return err
		}
		if err := binary.Write(&body, binary.LittleEndian, uint16(len(v))); err != nil {
			return err
		}
		body.Write(v)
	}
	body.WriteByte(0) // empty-key terminator

	total := uint32(len(fileMagic) + body.Len() + 4)
	if _, err := io.WriteString(w, trailerMagic); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, total)
}

// readTrailer reads the trailer at the end of an already-open file, seeking
// from EOF. It is non-fatal to fail here (spec: "failure here is non-fatal
// (duration becomes unknown)").
func readTrailer(ra io.ReaderAt, fileSize int64) (map[string][]byte, error) {
	if fileSize < 4 {
		return nil, fmt.Errorf("replay: file too small for trailer")
	}
	var sizeBuf [4]byte
	if _, err := ra.ReadAt(sizeBuf[:], fileSize-4); err != nil {
		return nil, err
	}
	trailerSize := int64(binary.LittleEndian.Uint32(sizeBuf[:]))
	if trailerSize < 9 || trailerSize > fileSize {
		return nil, fmt.Errorf("replay: invalid trailer size %d", trailerSize)
	}

	buf := make([]byte, trailerSize)
	if _, err := ra.ReadAt(buf, fileSize-trailerSize); err != nil {
		return nil, err
	}
	if string(buf[:4]) != trailerMagic {
		return nil, fmt.Errorf("replay: bad trailer magic %q", buf[:4])
	}

	r := bufio.NewReader(bytes.NewReader(buf[4 : len(buf)-4]))
	kv := make(map[string][]byte)
	for {
		key, err := readCString(r)
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		var length uint16
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, err
		}
		kv[key] = value
	}
	return kv, nil
}

// readFileHeaderFromFile rewinds f to the start and parses its fixed header,
// leaving the file's read offset at the end of the header on success.
func readFileHeaderFromFile(f io.ReadSeeker) (fileHeader, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fileHeader{}, err
	}
	return readFileHeader(bufio.NewReader(f))
}

func encodeDurationValue(ms uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, ms)
	return buf
}

func decodeDurationValue(v []byte) (uint32, bool) {
	if len(v) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v), true
}
