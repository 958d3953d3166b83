package spdreader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBinaryLayout(t *testing.T) {
	img, err := NewImage(3, SampleDDR4(7))
	require.NoError(t, err)

	buf, err := img.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, RecordSize)

	assert.Equal(t, img.Data[:], buf[:MaxImageSize])
	assert.Equal(t, uint16(512), binary.LittleEndian.Uint16(buf[512:]))
	assert.Equal(t, byte(3), buf[514])
	assert.Equal(t, byte(1), buf[515])
}

func TestUnmarshalBinaryRejects(t *testing.T) {
	valid, err := NewImage(0, SampleDDR3())
	require.NoError(t, err)
	good, err := valid.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short record", func(b []byte) []byte { return b[:RecordSize-1] }},
		{"slot out of range", func(b []byte) []byte { b[514] = 8; return b }},
		{"odd length", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[512:], 300); return b }},
		{"valid with zero length", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[512:], 0); return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.mutate(append([]byte(nil), good...))
			var img SpdImage
			assert.ErrorIs(t, img.UnmarshalBinary(buf), ErrInvalidImage)
		})
	}
}

func TestUnmarshalBinaryInvalidSlotKeepsLength(t *testing.T) {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(buf[512:], 512)
	buf[514] = 4

	var img SpdImage
	require.NoError(t, img.UnmarshalBinary(buf))
	assert.False(t, img.Valid)
	assert.Equal(t, 512, img.Length)
	assert.Equal(t, 4, img.Slot)
}

func TestEncodeDecodeImages(t *testing.T) {
	acq := newAcquisition()
	acq.Images[0], _ = NewImage(0, SampleDDR4(1))
	acq.Images[5], _ = NewImage(5, SampleDDR3())
	acq.Images[6].Length = MaxImageSize

	buf := EncodeImages(acq.Images)
	require.Len(t, buf, ArraySize)

	got, err := DecodeImages(buf)
	require.NoError(t, err)
	assert.Equal(t, acq.Images, got)
}

func TestDecodeImagesChecksIndex(t *testing.T) {
	acq := newAcquisition()
	buf := EncodeImages(acq.Images)
	buf[2*RecordSize+514] = 3

	_, err := DecodeImages(buf)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = DecodeImages(buf[:ArraySize-1])
	assert.ErrorIs(t, err, ErrInvalidImage)
}
