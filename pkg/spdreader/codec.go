package spdreader

import (
	"encoding/binary"
)

// Wire layout of one image across the control boundary:
// Data[512] | Length u16 LE | Slot u8 | Valid u8
const (
	RecordSize = MaxImageSize + 4
	ArraySize  = SlotCount * RecordSize
)

// MarshalBinary encodes the image in its boundary layout.
func (img SpdImage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	img.put(buf)
	return buf, nil
}

func (img SpdImage) put(buf []byte) {
	copy(buf, img.Data[:])
	binary.LittleEndian.PutUint16(buf[MaxImageSize:], uint16(img.Length))
	buf[MaxImageSize+2] = byte(img.Slot)
	if img.Valid {
		buf[MaxImageSize+3] = 1
	}
}

// UnmarshalBinary decodes one boundary record and checks its invariants.
func (img *SpdImage) UnmarshalBinary(buf []byte) error {
	if len(buf) != RecordSize {
		return invalidImagef("record is %d bytes, want %d", len(buf), RecordSize)
	}

	var out SpdImage
	copy(out.Data[:], buf[:MaxImageSize])
	out.Length = int(binary.LittleEndian.Uint16(buf[MaxImageSize:]))
	out.Slot = int(buf[MaxImageSize+2])
	out.Valid = buf[MaxImageSize+3] != 0

	if out.Slot >= SlotCount {
		return invalidImagef("slot %d out of range", out.Slot)
	}
	switch out.Length {
	case 0:
		if out.Valid {
			return invalidImagef("slot %d: valid image with zero length", out.Slot)
		}
	case LegacyImageSize, MaxImageSize:
	default:
		return invalidImagef("slot %d: length %d", out.Slot, out.Length)
	}

	*img = out
	return nil
}

// EncodeImages encodes a full slot array for the control boundary.
func EncodeImages(images [SlotCount]SpdImage) []byte {
	buf := make([]byte, ArraySize)
	for i, img := range images {
		img.put(buf[i*RecordSize : (i+1)*RecordSize])
	}
	return buf
}

// DecodeImages decodes a full slot array. Each record must sit at the index
// of its own slot.
func DecodeImages(buf []byte) ([SlotCount]SpdImage, error) {
	var images [SlotCount]SpdImage
	if len(buf) != ArraySize {
		return images, invalidImagef("array is %d bytes, want %d", len(buf), ArraySize)
	}
	for i := range images {
		if err := images[i].UnmarshalBinary(buf[i*RecordSize : (i+1)*RecordSize]); err != nil {
			return images, err
		}
		if images[i].Slot != i {
			return images, invalidImagef("record %d carries slot %d", i, images[i].Slot)
		}
	}
	return images, nil
}
