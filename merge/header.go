package merge

import "encoding/binary"

// The target database's header payload is a minimal record: just the
// by-id root offset and a document count, since merge_to_file never
// maintains a by-seq tree for its target (lost-and-found mode only
// ever salvages by-id).
func encodeByIDRootHeader(rootOffset int64, count uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(rootOffset))
	binary.BigEndian.PutUint64(buf[8:16], count)
	return buf
}

func decodeByIDRootOffset(payload []byte) (int64, bool) {
	if len(payload) < 16 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(payload[0:8])), true
}
