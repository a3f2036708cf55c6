package codec

import (
	"bytes"
	"compress/zlib"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// Sealed frame: [24-byte nonce][XChaCha20-Poly1305 ciphertext+tag] wrapping
// a zlib-compressed packet. Packet layout, big-endian:
//
//	[2 magic][1 version][1 flags][8 captured_at unix-nanos]
//	[4 ecg count][4 ppg count][4 accel count]
//	[4 temperature f32][4 battery f32]
//	[4 glucose f32, if flag bit0][4 spo2 f32, if flag bit1]
//	[ecg f32s][ppg f32s][accel f32s]

const (
	frameMagic    uint16 = 0x5646 // "VF"
	frameVersion  byte   = 1
	flagGlucose   byte   = 1 << 0
	flagSpO2      byte   = 1 << 1
	fixedHdrLen          = 28
	maxSamplesLen        = 1 << 20
)

var (
	// ErrAuthenticationFailed: the AEAD tag did not verify. The frame is
	// tampered or keyed wrong; it is dropped without retry.
	ErrAuthenticationFailed = errors.New("codec: authentication failed")
	// ErrCorruptFrame: authenticated plaintext failed to decompress.
	ErrCorruptFrame = errors.New("codec: corrupt frame")
	// ErrMalformedPacket: decompressed bytes do not parse as a packet.
	ErrMalformedPacket = errors.New("codec: malformed packet")
)

// Codec seals and opens transport frames with a per-session symmetric key.
// Decode is a pure transform: no side effects beyond the returned packet.
type Codec struct {
	aead cipher.AEAD
}

func New(key []byte) (*Codec, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("codec: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Decode authenticates, decrypts, decompresses, and parses a frame.
func (c *Codec) Decode(raw []byte) (domain.SensorPacket, error) {
	var zero domain.SensorPacket

	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return zero, fmt.Errorf("%w: frame too short (%d bytes)", ErrAuthenticationFailed, len(raw))
	}
	nonce := raw[:c.aead.NonceSize()]
	plain, err := c.aead.Open(nil, nonce, raw[c.aead.NonceSize():], nil)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(plain))
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	packed, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}

	return parsePacket(packed)
}

// Encode is the inverse of Decode. The pipeline never calls it; it exists
// for the transport simulator and for codec symmetry tests.
func (c *Codec) Encode(p domain.SensorPacket) ([]byte, error) {
	packed := packPacket(p)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(packed); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, compressed.Bytes(), nil), nil
}

func parsePacket(b []byte) (domain.SensorPacket, error) {
	var zero domain.SensorPacket

	if len(b) < fixedHdrLen {
		return zero, fmt.Errorf("%w: %d bytes < header", ErrMalformedPacket, len(b))
	}
	if binary.BigEndian.Uint16(b[0:2]) != frameMagic {
		return zero, fmt.Errorf("%w: bad magic", ErrMalformedPacket)
	}
	if b[2] != frameVersion {
		return zero, fmt.Errorf("%w: unsupported version %d", ErrMalformedPacket, b[2])
	}
	flags := b[3]

	p := domain.SensorPacket{
		CapturedAt: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))).UTC(),
	}

	ecgN := binary.BigEndian.Uint32(b[12:16])
	ppgN := binary.BigEndian.Uint32(b[16:20])
	accN := binary.BigEndian.Uint32(b[20:24])
	if ecgN > maxSamplesLen || ppgN > maxSamplesLen || accN > maxSamplesLen {
		return zero, fmt.Errorf("%w: sample counts %d/%d/%d exceed limit", ErrMalformedPacket, ecgN, ppgN, accN)
	}
	p.Temperature = f32(b[24:28])

	off := fixedHdrLen
	need := 4 // battery
	if flags&flagGlucose != 0 {
		need += 4
	}
	if flags&flagSpO2 != 0 {
		need += 4
	}
	need += 4 * int(ecgN+ppgN+accN)
	if len(b)-off != need {
		return zero, fmt.Errorf("%w: body %d bytes, expected %d", ErrMalformedPacket, len(b)-off, need)
	}

	p.BatteryPct = f32(b[off:])
	off += 4
	if flags&flagGlucose != 0 {
		p.Glucose, p.HasGlucose = f32(b[off:]), true
		off += 4
	}
	if flags&flagSpO2 != 0 {
		p.SpO2, p.HasSpO2 = f32(b[off:]), true
		off += 4
	}

	p.ECG, off = f32s(b, off, int(ecgN))
	p.PPG, off = f32s(b, off, int(ppgN))
	p.Accel, _ = f32s(b, off, int(accN))
	return p, nil
}

func packPacket(p domain.SensorPacket) []byte {
	var flags byte
	if p.HasGlucose {
		flags |= flagGlucose
	}
	if p.HasSpO2 {
		flags |= flagSpO2
	}

	size := fixedHdrLen + 4 + 4*(len(p.ECG)+len(p.PPG)+len(p.Accel))
	if p.HasGlucose {
		size += 4
	}
	if p.HasSpO2 {
		size += 4
	}

	b := make([]byte, 0, size)
	b = binary.BigEndian.AppendUint16(b, frameMagic)
	b = append(b, frameVersion, flags)
	b = binary.BigEndian.AppendUint64(b, uint64(p.CapturedAt.UnixNano()))
	b = binary.BigEndian.AppendUint32(b, uint32(len(p.ECG)))
	b = binary.BigEndian.AppendUint32(b, uint32(len(p.PPG)))
	b = binary.BigEndian.AppendUint32(b, uint32(len(p.Accel)))
	b = appendF32(b, p.Temperature)
	b = appendF32(b, p.BatteryPct)
	if p.HasGlucose {
		b = appendF32(b, p.Glucose)
	}
	if p.HasSpO2 {
		b = appendF32(b, p.SpO2)
	}
	for _, v := range p.ECG {
		b = appendF32(b, v)
	}
	for _, v := range p.PPG {
		b = appendF32(b, v)
	}
	for _, v := range p.Accel {
		b = appendF32(b, v)
	}
	return b
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b[:4]))
}

func f32s(b []byte, off, n int) ([]float32, int) {
	if n == 0 {
		return nil, off
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = f32(b[off:])
		off += 4
	}
	return out, off
}

func appendF32(b []byte, v float32) []byte {
	return binary.BigEndian.AppendUint32(b, math.Float32bits(v))
}
