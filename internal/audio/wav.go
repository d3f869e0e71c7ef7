package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const headerSize = 44

var ErrNotWAV = errors.New("not a PCM WAV stream")

// WAVHeader is the canonical 44-byte RIFF header for PCM audio.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV wraps raw mono PCM-16 little-endian bytes in a WAV container.
// A trailing odd byte is dropped.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	pcm = pcm[:len(pcm)&^1]

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(pcm))

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))
	err := binary.Write(buf, binary.LittleEndian, header)
	if err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// ParseHeader reads the header at the start of data.
func ParseHeader(data []byte) (*WAVHeader, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: need %d header bytes, got %d", ErrNotWAV, headerSize, len(data))
	}

	var header WAVHeader
	err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF",
		string(header.Format[:]) != "WAVE",
		string(header.Subchunk1ID[:]) != "fmt ",
		string(header.Subchunk2ID[:]) != "data":
		return nil, ErrNotWAV
	case header.AudioFormat != 1:
		return nil, fmt.Errorf("%w: format %d", ErrNotWAV, header.AudioFormat)
	case header.ByteRate == 0:
		return nil, fmt.Errorf("%w: zero byte rate", ErrNotWAV)
	}

	return &header, nil
}

// Duration is the playing time of the data chunk.
func (h *WAVHeader) Duration() time.Duration {
	return time.Duration(float64(h.Subchunk2Size) / float64(h.ByteRate) * float64(time.Second))
}

// Tone synthesizes a mono PCM-16 sine tone with a short linear fade out.
func Tone(frequency float64, d time.Duration, sampleRate int) []byte {
	n := int(d.Seconds() * float64(sampleRate))
	out := make([]byte, n*2)
	const amplitude = 0.3 * math.MaxInt16

	for i := range n {
		gain := 1.0 - float64(i)/float64(n)
		v := amplitude * gain * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
