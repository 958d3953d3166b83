package parser

// Module represents parsed SPD data
type Module struct {
	Type              string
	BaseFreqMHz       float64
	DataRateMTs       int
	PCRate            int
	CapacityGB        float64
	Ranks             int
	DataWidth         int
	JEDECManufacturer string
	PartNumber        string
	Serial            string
	ManufacturingDate string
	Timings           Timings
}

// Timings represents memory timing parameters in clock cycles
type Timings struct {
	CL   int // CAS Latency
	RCD  int // RAS to CAS Delay
	RP   int // RAS Precharge
	RAS  int // Active to Precharge Delay
	RC   int // Row Cycle Time
	RFC  int // Refresh Cycle Time
	RRDS int // Row to Row Delay (different bank group)
	RRDL int // Row to Row Delay (same bank group)
	FAW  int // Four Activate Window
}

// Summary is the fixed field map of an SPD image.
type Summary struct {
	Length       int          `json:"length"`
	TypeCode     byte         `json:"typeCode"`
	DDRType      string       `json:"ddrType"`
	Banks        int          `json:"banks"`
	Density      int          `json:"density"`
	SizeMB       uint64       `json:"sizeMB"`
	Manufacturer Manufacturer `json:"manufacturer"`
	TCL          uint16       `json:"tCL"`
	TRCD         uint16       `json:"tRCD"`
	TRP          uint16       `json:"tRP"`
	TRAS         uint16       `json:"tRAS"`
}

// Manufacturer is the raw JEDEC ID pair at bytes 320/321.
type Manufacturer struct {
	Specified bool   `json:"specified"`
	Bank      byte   `json:"bank"`
	ID        byte   `json:"id"`
	Name      string `json:"name,omitempty"`
}
