package codec

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	in := domain.SensorPacket{
		CapturedAt:  time.Unix(1700000000, 123456789).UTC(),
		ECG:         []float32{0.1, -0.2, 1.5, 0.0},
		PPG:         []float32{0.5, 0.6},
		Accel:       []float32{0.0, 9.8, 0.1},
		Temperature: 36.6,
		BatteryPct:  81.5,
		Glucose:     104,
		HasGlucose:  true,
		SpO2:        97.5,
		HasSpO2:     true,
	}

	frame, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !out.CapturedAt.Equal(in.CapturedAt) {
		t.Fatalf("captured_at mismatch: %v != %v", out.CapturedAt, in.CapturedAt)
	}
	if len(out.ECG) != len(in.ECG) || out.ECG[2] != in.ECG[2] {
		t.Fatalf("ecg mismatch: %v", out.ECG)
	}
	if len(out.PPG) != len(in.PPG) || len(out.Accel) != len(in.Accel) {
		t.Fatalf("waveform lengths mismatch")
	}
	if out.Temperature != in.Temperature || out.BatteryPct != in.BatteryPct {
		t.Fatalf("scalar mismatch: temp=%v batt=%v", out.Temperature, out.BatteryPct)
	}
	if !out.HasGlucose || out.Glucose != in.Glucose {
		t.Fatalf("glucose mismatch: %v %v", out.HasGlucose, out.Glucose)
	}
	if !out.HasSpO2 || out.SpO2 != in.SpO2 {
		t.Fatalf("spo2 mismatch: %v %v", out.HasSpO2, out.SpO2)
	}
}

func TestEncodeDecodeOmitsAbsentSamples(t *testing.T) {
	c, _ := New(testKey())

	in := domain.SensorPacket{CapturedAt: time.Now().UTC(), BatteryPct: 50}
	frame, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.HasGlucose || out.HasSpO2 || len(out.ECG) != 0 {
		t.Fatalf("expected empty optional fields, got %+v", out)
	}
}

func TestDecodeTamperedFrame(t *testing.T) {
	c, _ := New(testKey())

	frame, err := c.Encode(domain.SensorPacket{CapturedAt: time.Now()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame[len(frame)-1] ^= 0xFF

	if _, err := c.Decode(frame); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecodeWrongKey(t *testing.T) {
	c1, _ := New(testKey())
	other := testKey()
	other[0] ^= 0xFF
	c2, _ := New(other)

	frame, _ := c1.Encode(domain.SensorPacket{CapturedAt: time.Now()})
	if _, err := c2.Decode(frame); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	c, _ := New(testKey())
	if _, err := c.Decode([]byte{1, 2, 3}); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecodeCorruptCompression(t *testing.T) {
	c, _ := New(testKey())

	// Seal plaintext that is not valid zlib: authentication passes,
	// decompression must fail.
	nonce := make([]byte, c.aead.NonceSize())
	frame := c.aead.Seal(nonce, nonce, []byte("definitely not zlib"), nil)

	if _, err := c.Decode(frame); !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("expected ErrCorruptFrame, got %v", err)
	}
}

func TestDecodeMalformedPacket(t *testing.T) {
	c, _ := New(testKey())

	cases := map[string][]byte{
		"too_short":  {0x56, 0x46, 1, 0},
		"bad_magic":  append([]byte{0xDE, 0xAD, 1, 0}, make([]byte, 32)...),
		"bad_body":   truncatedPacket(t, c),
		"bad_counts": overcountedPacket(),
	}

	for name, packed := range cases {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(packed); err != nil {
			t.Fatalf("%s: compress: %v", name, err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("%s: close: %v", name, err)
		}
		nonce := make([]byte, c.aead.NonceSize())
		frame := c.aead.Seal(nonce, nonce, compressed.Bytes(), nil)

		if _, err := c.Decode(frame); !errors.Is(err, ErrMalformedPacket) {
			t.Fatalf("%s: expected ErrMalformedPacket, got %v", name, err)
		}
	}
}

func truncatedPacket(t *testing.T, c *Codec) []byte {
	t.Helper()
	full := packPacket(domain.SensorPacket{CapturedAt: time.Now(), ECG: []float32{1, 2, 3}})
	return full[:len(full)-2]
}

func overcountedPacket() []byte {
	b := packPacket(domain.SensorPacket{CapturedAt: time.Now()})
	// Claim an absurd ECG count without supplying samples.
	b[12], b[13], b[14], b[15] = 0xFF, 0xFF, 0xFF, 0xFF
	return b
}
