package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

func TestEncodeDecodeHexdump(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.bin")

	var out bytes.Buffer
	require.NoError(t, run([]string{"encode", file, "u32 u32 string vec<i16>", "9001", "9002", "Hello World!", "1,-2"}, &out))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x29, 0x23, 0, 0, 0x2A, 0x23, 0, 0, 12, 0, 0, 0}, data[:12])

	out.Reset()
	require.NoError(t, run([]string{"decode", file, "u32 u32 string vec<i16>"}, &out))
	assert.Equal(t, "9001\n9002\nHello World!\n1,-2\n", out.String())

	out.Reset()
	require.NoError(t, run([]string{"hexdump", file}, &out))
	assert.Contains(t, out.String(), "29 23 00 00 2a 23 00 00")
	assert.Contains(t, out.String(), "|)#..*#......Hell|")
}

func TestEncodeOverwritesExisting(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(file, bytes.Repeat([]byte{0xEE}, 32), 0o600))

	require.NoError(t, run([]string{"encode", file, "u8", "7"}, &bytes.Buffer{}))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, data)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	assert.ErrorIs(t, run(nil, &out), merr.ErrParameterMissing)
	assert.ErrorIs(t, run([]string{"frobnicate"}, &out), merr.ErrParameterInvalid)
	assert.ErrorIs(t, run([]string{"encode", filepath.Join(dir, "a.bin")}, &out), merr.ErrParameterMissing)
	assert.ErrorIs(t, run([]string{"encode", filepath.Join(dir, "a.bin"), "u8", "300"}, &out), merr.ErrParameterInvalid)
	assert.ErrorIs(t, run([]string{"decode", filepath.Join(dir, "missing.bin"), "u8"}, &out), merr.ErrIoFailed)

	short := filepath.Join(dir, "short.bin")
	require.NoError(t, os.WriteFile(short, []byte{1, 2}, 0o600))
	assert.ErrorIs(t, run([]string{"decode", short, "u32"}, &out), merr.ErrIoUnexpectEOF)
}
