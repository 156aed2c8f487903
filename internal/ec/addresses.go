package ec

// Named EC registers. Values are compatibility-critical: changing any of
// these breaks scenario application on real hardware.
const (
	AddrCPUFanSpeed  byte = 0xC8
	AddrGPUFanSpeed  byte = 0xCA
	AddrCPUTemp      byte = 0x68
	AddrGPUTemp      byte = 0x80
	AddrFanMode      byte = 0xD4
	AddrCoolerBoost  byte = 0x98
	AddrShiftMode    byte = 0xD2
	AddrSuperBattery byte = 0xEB

	// AddrCPUFanCurveBase and AddrGPUFanCurveBase are the first of 12
	// consecutive bytes: 6 (temp, speed) pairs.
	AddrCPUFanCurveBase byte = 0x72
	AddrGPUFanCurveBase byte = 0x8A
)

// FanCurvePoints is the number of temp/speed pairs programmed at a curve
// base address.
const FanCurvePoints = 6
