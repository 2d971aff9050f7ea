package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/shelfann/shelfann/internal/conv"
)

// Binary layout (little-endian):
//
//	offset 0  : magic[8]     = "HNSWANN1"
//	offset 8  : version  u32 = 1
//	offset 12 : dim      u32
//	offset 16 : node_count u32
//	offset 20 : m        u32
//	offset 24 : entry    u32
//	offset 28 : ef_search u32
//	offset 32 : scale    f32
//	offset 36 : codes     int8[node_count*dim]
//	          : norms     f32[node_count]
//	          : neighbors int32[node_count*m]  (-1 = empty slot)
//
// A decoder rejects any input whose total length differs from
// HeaderSize + N*D + N*4 + N*M*4.

// Encode serializes the artifact to its binary wire form.
func (a *Artifact) Encode() ([]byte, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	dimU32, err := conv.IntToUint32(a.Dim)
	if err != nil {
		return nil, err
	}
	nodeU32, err := conv.IntToUint32(a.NodeCount())
	if err != nil {
		return nil, err
	}
	mU32, err := conv.IntToUint32(a.M)
	if err != nil {
		return nil, err
	}
	entryU32, err := conv.IntToUint32(a.EntryNode)
	if err != nil {
		return nil, err
	}
	efU32, err := conv.IntToUint32(a.EFSearch)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, a.EncodedSize())
	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint32(buf[8:12], Version)
	binary.LittleEndian.PutUint32(buf[12:16], dimU32)
	binary.LittleEndian.PutUint32(buf[16:20], nodeU32)
	binary.LittleEndian.PutUint32(buf[20:24], mU32)
	binary.LittleEndian.PutUint32(buf[24:28], entryU32)
	binary.LittleEndian.PutUint32(buf[28:32], efU32)
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(a.Scale))

	off := HeaderSize
	for _, row := range a.Codes {
		for _, c := range row {
			buf[off] = byte(c)
			off++
		}
	}
	for _, n := range a.Norms {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(n))
		off += 4
	}
	for _, row := range a.Neighbors {
		for _, idx := range row {
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(idx))
			off += 4
		}
	}

	return buf, nil
}

// WriteTo writes the encoded artifact to w.
//
// It matches the io.WriterTo interface for toolchain friendliness.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	data, err := a.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Decode parses an encoded artifact. It fails with an error wrapping
// ErrCorrupt if the magic, version, or total byte length do not match
// exactly; no partial decode is attempted.
func Decode(data []byte) (*Artifact, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d-byte header", ErrCorrupt, len(data), HeaderSize)
	}
	if string(data[0:8]) != Magic {
		return nil, fmt.Errorf("%w: %w: %q", ErrCorrupt, ErrInvalidMagic, data[0:8])
	}
	if v := binary.LittleEndian.Uint32(data[8:12]); v != Version {
		return nil, fmt.Errorf("%w: %w: %d", ErrCorrupt, ErrInvalidVersion, v)
	}

	dim, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[12:16]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	nodeCount, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[16:20]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	m, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[20:24]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	entry, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[24:28]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	efSearch, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[28:32]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	scale := math.Float32frombits(binary.LittleEndian.Uint32(data[32:36]))

	// Region sizes are computed in uint64 and bounded against the input
	// length first: an adversarial header with huge counts must not wrap
	// the expected-size arithmetic past the length check, and must be
	// rejected before any region allocation.
	size := uint64(len(data))
	nodes := uint64(nodeCount)
	codesLen := nodes * uint64(dim)
	neighborsLen := nodes * uint64(m)
	if nodes > size/4 || codesLen > size || neighborsLen > size/4 {
		return nil, fmt.Errorf("%w: header implies %d nodes (dim=%d m=%d) but only %d bytes",
			ErrCorrupt, nodeCount, dim, m, len(data))
	}

	want := uint64(HeaderSize) + codesLen + nodes*4 + neighborsLen*4
	if size != want {
		return nil, fmt.Errorf("%w: length %d, want %d (dim=%d nodes=%d m=%d)",
			ErrCorrupt, len(data), want, dim, nodeCount, m)
	}

	a := &Artifact{
		Dim:       dim,
		M:         m,
		EntryNode: entry,
		EFSearch:  efSearch,
		Scale:     scale,
		Codes:     make([][]int8, nodeCount),
		Norms:     make([]float32, nodeCount),
		Neighbors: make([][]int32, nodeCount),
	}

	off := HeaderSize
	for i := range a.Codes {
		row := make([]int8, dim)
		for j := range row {
			row[j] = int8(data[off])
			off++
		}
		a.Codes[i] = row
	}
	for i := range a.Norms {
		a.Norms[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}
	for i := range a.Neighbors {
		row := make([]int32, m)
		for j := range row {
			row[j] = int32(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		a.Neighbors[i] = row
	}

	return a, nil
}

// SaveToFile atomically writes the encoded artifact to filename and
// returns the SHA-256 checksum of the written bytes. The checksum is the
// artifact's external identity; callers record it alongside the file.
func (a *Artifact) SaveToFile(filename string) (string, error) {
	data, err := a.Encode()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(filename, data); err != nil {
		return "", err
	}
	return Checksum(data), nil
}

// LoadFromFile reads and decodes an artifact. If expectedChecksum is
// non-empty, the loaded bytes are verified against it before any decode
// is attempted; on mismatch the artifact must be treated as
// untrustworthy.
func LoadFromFile(filename, expectedChecksum string) (*Artifact, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if expectedChecksum != "" {
		if err := VerifyChecksum(data, expectedChecksum); err != nil {
			return nil, err
		}
	}
	return Decode(data)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so concurrent readers never observe a partial
// artifact.
func writeFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if _, err := buf.Write(data); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, filename)
}
