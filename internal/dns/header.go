package dns

import (
	"encoding/binary"
)

// HeaderSize is the fixed wire size, in octets, of a DNS message header.
const HeaderSize = 12

const (
	maskQR     = 0x8000
	maskOpcode = 0x7800
	maskAA     = 0x0400
	maskTC     = 0x0200
	maskRD     = 0x0100
	maskRA     = 0x0080
	maskRCode  = 0x000F
)

const (
	// OpcodeStandard is the only opcode the core pipeline accepts.
	OpcodeStandard = 0
)

// Header is the 12-octet fixed header shared by every DNS message.
type Header struct {
	ID      uint16
	QR      bool
	Opcode  uint8
	AA      bool
	TC      bool
	RD      bool
	RA      bool
	RCode   RCode
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// readHeader decodes the first HeaderSize octets of buf into a Header. The caller must ensure buf
// is at least HeaderSize octets long.
func readHeader(buf []byte) Header {
	fields := binary.BigEndian.Uint16(buf[2:4])

	return Header{
		ID:      binary.BigEndian.Uint16(buf[0:2]),
		QR:      fields&maskQR != 0,
		Opcode:  uint8((fields & maskOpcode) >> 11),
		AA:      fields&maskAA != 0,
		TC:      fields&maskTC != 0,
		RD:      fields&maskRD != 0,
		RA:      fields&maskRA != 0,
		RCode:   RCode(fields & maskRCode),
		QDCount: binary.BigEndian.Uint16(buf[4:6]),
		ANCount: binary.BigEndian.Uint16(buf[6:8]),
		NSCount: binary.BigEndian.Uint16(buf[8:10]),
		ARCount: binary.BigEndian.Uint16(buf[10:12]),
	}
}

// writeHeader encodes h into the first HeaderSize octets of buf. The caller must ensure buf is at
// least HeaderSize octets long.
func writeHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint16(buf[0:2], h.ID)

	var fields uint16
	if h.QR {
		fields |= maskQR
	}
	fields |= uint16(h.Opcode) << 11 & maskOpcode
	if h.AA {
		fields |= maskAA
	}
	if h.TC {
		fields |= maskTC
	}
	if h.RD {
		fields |= maskRD
	}
	if h.RA {
		fields |= maskRA
	}
	fields |= uint16(h.RCode) & maskRCode

	binary.BigEndian.PutUint16(buf[2:4], fields)
	binary.BigEndian.PutUint16(buf[4:6], h.QDCount)
	binary.BigEndian.PutUint16(buf[6:8], h.ANCount)
	binary.BigEndian.PutUint16(buf[8:10], h.NSCount)
	binary.BigEndian.PutUint16(buf[10:12], h.ARCount)
}

// compressionPointer computes the two-octet compression pointer value referencing a name at the
// given byte offset from the start of the message.
func compressionPointer(offset uint8) uint16 {
	return 0xC000 | uint16(offset)
}
