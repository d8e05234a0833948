// Package conv appends numbers to byte slices without fmt or strconv, for
// log and console lines built on the hot path.
package conv

const hexDigits = "0123456789ABCDEF"

// AppendUint appends the base-10 form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, tmp[i:]...)
}

// AppendInt appends the base-10 form of n, with a leading '-' if negative.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		return AppendUint(append(dst, '-'), uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendHex appends the low digits nibbles of n as zero-padded uppercase hex.
// digits is clamped to 1..8.
func AppendHex(dst []byte, n uint32, digits int) []byte {
	if digits < 1 {
		digits = 1
	}
	if digits > 8 {
		digits = 8
	}
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(n>>(uint(i)*4))&0xF])
	}
	return dst
}
