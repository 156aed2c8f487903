package ec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerReadWriteRoundTrip(t *testing.T) {
	c, mem := NewMemController()

	require.NoError(t, c.Write(AddrShiftMode, 0xC4))
	v, err := c.Read(AddrShiftMode)
	require.NoError(t, err)
	assert.Equal(t, byte(0xC4), v)
	assert.Equal(t, byte(0xC4), mem.Get(AddrShiftMode))
}

func TestControllerRecordsWriteOrder(t *testing.T) {
	c, mem := NewMemController()

	require.NoError(t, c.Write(AddrShiftMode, 0xC4))
	require.NoError(t, c.Write(AddrSuperBattery, 0x00))
	require.NoError(t, c.Write(AddrFanMode, 3))

	assert.Equal(t, []Write{
		{Addr: AddrShiftMode, Value: 0xC4},
		{Addr: AddrSuperBattery, Value: 0x00},
		{Addr: AddrFanMode, Value: 3},
	}, mem.Write)
}

func TestVendorBackendUnmappedAddressErrors(t *testing.T) {
	v := &vendorBackend{dir: t.TempDir()}

	_, err := v.readByte(AddrCPUTemp)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	err = v.writeByte(AddrCPUFanSpeed, 42)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestVendorBackendMappedAddressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	v := &vendorBackend{dir: dir}

	require.NoError(t, v.writeByte(AddrShiftMode, 0xC1))
	got, err := v.readByte(AddrShiftMode)
	require.NoError(t, err)
	assert.Equal(t, byte(0xC1), got)
}

func TestPortBackendPollTimeoutReturnsIoFailedAfterExactBound(t *testing.T) {
	// The status byte at the SC offset has IBF set and never clears, so
	// waitFlag must run all pollIterations attempts and then return its
	// timeout ErrIoFailed rather than hanging or succeeding early.
	origIterations, origDelay := pollIterations, pollDelay
	pollIterations = 5
	pollDelay = 0
	defer func() { pollIterations, pollDelay = origIterations, origDelay }()

	path := filepath.Join(t.TempDir(), "port")
	ports := make([]byte, scPort+1)
	ports[scPort] = scIBF
	require.NoError(t, os.WriteFile(path, ports, 0o644))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	p := &portBackend{f: f}
	_, err = p.readByte(AddrCPUTemp)
	assert.ErrorIs(t, err, ErrIoFailed)
	assert.Contains(t, err.Error(), "timed out")
}
