package replay

import (
	"bufio"
	"bytes"
	"testing"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	in := fileHeader{
		SVFPS:      20,
		MaxClients: 16,
		MapName:    "q3dm17",
		Timestamp:  "2026-07-31T12:00:00Z",
		Configstrings: []csEntry{
			{Index: CSServerInfo, Data: []byte(`\mapname\q3dm17\tv\1`)},
			{Index: CSPlayers, Data: []byte("Ranger")},
		},
	}

	var buf bytes.Buffer
	if err := writeFileHeader(&buf, in); err != nil {
		t.Fatalf("writeFileHeader: %v", err)
	}

	got, err := readFileHeader(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readFileHeader: %v", err)
	}
	if got.SVFPS != in.SVFPS || got.MaxClients != in.MaxClients {
		t.Fatalf("scalar mismatch: got %+v", got)
	}
	if got.MapName != in.MapName || got.Timestamp != in.Timestamp {
		t.Fatalf("string mismatch: got %+v", got)
	}
	if got.DurationMs != 0 {
		t.Fatalf("expected zero duration placeholder, got %d", got.DurationMs)
	}
	if len(got.Configstrings) != len(in.Configstrings) {
		t.Fatalf("configstring count mismatch: got %d want %d", len(got.Configstrings), len(in.Configstrings))
	}
	for i, cs := range got.Configstrings {
		if cs.Index != in.Configstrings[i].Index || !bytes.Equal(cs.Data, in.Configstrings[i].Data) {
			t.Fatalf("configstring[%d] mismatch: got %+v want %+v", i, cs, in.Configstrings[i])
		}
	}
}

func TestFileHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXX")
	if _, err := readFileHeader(bufio.NewReader(buf)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDurationOffsetMatchesLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFileHeader(&buf, fileHeader{SVFPS: 20, MaxClients: 16}); err != nil {
		t.Fatalf("writeFileHeader: %v", err)
	}
	raw := buf.Bytes()
	if len(raw) < durationOffset+4 {
		t.Fatalf("header too short: %d bytes", len(raw))
	}
	durationBytes := raw[durationOffset : durationOffset+4]
	for _, b := range durationBytes {
		if b != 0 {
			t.Fatalf("expected zeroed duration placeholder at offset %d, got %v", durationOffset, durationBytes)
		}
	}
}

func TestTrailerRoundTrip(t *testing.T) {
	kv := map[string][]byte{
		"dur": encodeDurationValue(4_200_000),
	}
	var buf bytes.Buffer
	if err := writeTrailer(&buf, kv); err != nil {
		t.Fatalf("writeTrailer: %v", err)
	}

	data := buf.Bytes()
	got, err := readTrailer(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("readTrailer: %v", err)
	}
	ms, ok := decodeDurationValue(got["dur"])
	if !ok || ms != 4_200_000 {
		t.Fatalf("dur mismatch: got %v ok=%v", got["dur"], ok)
	}
}

func TestTrailerEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTrailer(&buf, nil); err != nil {
		t.Fatalf("writeTrailer: %v", err)
	}
	data := buf.Bytes()
	if len(data) != 9 {
		t.Fatalf("expected 9-byte empty trailer (magic+terminator+size), got %d", len(data))
	}
	got, err := readTrailer(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("readTrailer: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no keys, got %v", got)
	}
}

func TestTrailerRejectsOversizedKey(t *testing.T) {
	longKey := bytes.Repeat([]byte("k"), maxTrailerKeyLen+1)
	err := writeTrailer(&bytes.Buffer{}, map[string][]byte{string(longKey): []byte("v")})
	if err == nil {
		t.Fatal("expected error for oversized trailer key")
	}
}
