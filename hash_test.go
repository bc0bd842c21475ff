package sqpack

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJamCRC32_IsComplementOfIEEE(t *testing.T) {
	data := []byte("exd/ffxiv/root.exl")
	require.Equal(t, ^crc32.ChecksumIEEE(data), jamCRC32(data))
}

func TestIndex1Key_PacksDirAndFileHashes(t *testing.T) {
	dir, file := "exd/ffxiv", "root.exl"
	key := index1Key(dir, file)
	require.Equal(t, uint32(key>>32), jamCRC32([]byte(dir)))
	require.Equal(t, uint32(key), jamCRC32([]byte(file)))
}

func TestIndex2Key_HashesFullPath(t *testing.T) {
	full := "exd/ffxiv/root.exl"
	require.Equal(t, jamCRC32([]byte(full)), index2Key(full))
}
