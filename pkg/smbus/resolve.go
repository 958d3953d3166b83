package smbus

// Intel ICH/PCH SMBus function: PCI 00:1f.3, I/O BAR at config offset 0x20
const (
	pciClassSerialBus = "0c"
	pciSubclassSMBus  = "05"
	pciVendorIntel    = "8086"
	pciSMBusBAR       = 0x20
	ioBARMask         = 0xFFFC
)

// decodeIOBAR extracts the I/O base from a little-endian BAR dword. Memory
// BARs (bit 0 clear) do not describe a port range and yield 0.
func decodeIOBAR(bar []byte) uint16 {
	if len(bar) < 4 {
		return 0
	}
	value := uint32(bar[0]) | uint32(bar[1])<<8 | uint32(bar[2])<<16 | uint32(bar[3])<<24
	if value == 0xFFFFFFFF || value&0x1 == 0 {
		return 0
	}
	return uint16(value & ioBARMask)
}
