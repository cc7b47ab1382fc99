package mp4engine

var startCode = []byte{0, 0, 0, 1}

func appendNALU(dst, nalu []byte) []byte {
	dst = append(dst, startCode...)
	return append(dst, nalu...)
}

// avccToAnnexB appends the 4-byte length-prefixed NAL units of data to dst
// with start codes instead. A truncated trailing unit is dropped.
func avccToAnnexB(dst, data []byte) []byte {
	offset := 0
	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if naluLen < 0 || offset+naluLen > len(data) {
			break
		}
		dst = appendNALU(dst, data[offset:offset+naluLen])
		offset += naluLen
	}
	return dst
}
