package common

import "hash/fnv"

// Hash64 returns the 64-bit FNV-1a hash of the concatenated chunks.
func Hash64(chunks ...[]byte) uint64 {
	h := fnv.New64a()

	for _, c := range chunks {
		h.Write(c)
	}

	return h.Sum64()
}
