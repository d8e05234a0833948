package canbus

import (
	"errors"

	"eusama-go/x/conv"
)

// Frame is a classical CAN 2.0A/2.0B frame.
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool
	RTR      bool
	Len      uint8 // 0..8
	Data     [8]byte
}

const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

var (
	ErrInvalidID  = errors.New("canbus: invalid identifier")
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else if f.ID > maxStdID {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the valid data bytes.
func (f *Frame) Payload() []byte {
	n := f.Len
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// ExtFrame builds an extended data frame. Data beyond 8 bytes is truncated.
func ExtFrame(id uint32, data []byte) Frame {
	f := Frame{ID: id & maxExtID, Extended: true}
	f.Len = uint8(copy(f.Data[:], data))
	return f
}

// MustFrame constructs a Frame and panics if invalid. IDs above the 11-bit
// range are marked extended.
func MustFrame(id uint32, data []byte) Frame {
	var f Frame
	f.ID = id
	if id > maxStdID {
		f.Extended = true
	}
	if len(data) > 8 {
		panic(ErrInvalidLen)
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		panic(err)
	}
	return f
}

// String renders "ID [len] B0 B1 ..." with the ID zero padded to 3 or 8
// hex digits.
func (f Frame) String() string {
	w := 3
	if f.Extended {
		w = 8
	}
	buf := make([]byte, 0, 8+4+3*8+2)
	buf = conv.AppendHex(buf, f.ID, w)
	buf = append(buf, ' ', '[', '0'+byte(f.Len%10), ']')
	if f.RTR {
		return string(append(buf, " RTR"...))
	}
	for _, b := range f.Payload() {
		buf = conv.AppendHex(append(buf, ' '), uint32(b), 2)
	}
	return string(buf)
}
