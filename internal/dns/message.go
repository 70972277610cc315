package dns

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

const (
	// TypeA is the IN-class A record type: a single IPv4 address.
	TypeA uint16 = 0x01
	// TypeANY matches any record type.
	TypeANY uint16 = 0xFF

	// ClassIN is the Internet record class.
	ClassIN uint16 = 0x01
	// ClassANY matches any record class.
	ClassANY uint16 = 0xFF

	// maxNameSize bounds the encoded size (including the terminating zero octet) of a QNAME.
	maxNameSize = 255
	// maxLabelSize bounds the size of a single label within a QNAME.
	maxLabelSize = 63
)

var compatibleTypes = map[uint16]bool{TypeA: true, TypeANY: true}
var compatibleClasses = map[uint16]bool{ClassIN: true, ClassANY: true}

// Query is a parsed single-question DNS query, restricted to the subset of the protocol this
// system understands: exactly one question, standard opcode, A or ANY type, IN or ANY class.
type Query struct {
	Header Header
	Name   string
	Type   uint16
	Class  uint16
}

// Answer is the single answer section this system ever emits or parses: an A record bound to one
// IPv4 address.
type Answer struct {
	Name    string
	Type    uint16
	Class   uint16
	TTL     uint32
	Address net.IP
}

// ParseQuery decodes and validates a client query. It returns a *Error with FormErr if the
// message cannot be parsed at all, and a *Error with NotImp if the message parses but describes
// an operation outside this system's supported subset.
func ParseQuery(buf []byte) (*Query, error) {
	if len(buf) < HeaderSize {
		return nil, newError(FormErr, 0, "message shorter than header")
	}

	h := readHeader(buf)
	if h.ID == 0 || h.QR {
		return nil, newError(FormErr, h.ID, "zero id or malformed QR flag")
	}

	name, n, err := decodeName(buf[HeaderSize:])
	if err != nil {
		return nil, newError(FormErr, h.ID, err.Error())
	}

	rest := buf[HeaderSize+n:]
	if len(rest) < 4 {
		return nil, newError(FormErr, h.ID, "truncated question section")
	}

	q := &Query{
		Header: h,
		Name:   name,
		Type:   binary.BigEndian.Uint16(rest[0:2]),
		Class:  binary.BigEndian.Uint16(rest[2:4]),
	}

	if !q.compatible() {
		return nil, newError(NotImp, h.ID, "unsupported opcode, qdcount, type, or class")
	}

	return q, nil
}

func (q *Query) compatible() bool {
	return q.Header.QDCount == 1 &&
		q.Header.Opcode == OpcodeStandard &&
		compatibleTypes[q.Type] &&
		compatibleClasses[q.Class]
}

// Encode re-serializes the query for forwarding to the upstream resolver. The request is
// re-emitted byte-for-byte-equivalent rather than passed through verbatim from the client buffer,
// so that ARCOUNT and any trailing garbage the client sent never reaches the upstream.
func (q *Query) Encode() []byte {
	buf := make([]byte, HeaderSize, HeaderSize+len(q.Name)+6)

	h := q.Header
	h.ARCount = 0
	writeHeader(buf, h)

	buf = append(buf, encodeName(q.Name)...)
	buf = appendUint16(buf, q.Type)
	buf = appendUint16(buf, q.Class)

	return buf
}

// NewAnswerResponse builds the wire bytes of a successful reply binding address to the original
// query's name. The answer's NAME field is a compression pointer back to the question, matching
// this system's fixed QNAME offset of HeaderSize.
func NewAnswerResponse(q *Query, address net.IP, ttl uint32) []byte {
	h := Header{
		ID:      q.Header.ID,
		QR:      true,
		RD:      q.Header.RD,
		QDCount: 1,
		ANCount: 1,
		RCode:   NoError,
	}

	buf := make([]byte, HeaderSize)
	writeHeader(buf, h)

	buf = append(buf, encodeName(q.Name)...)
	buf = appendUint16(buf, q.Type)
	buf = appendUint16(buf, q.Class)

	buf = appendUint16(buf, compressionPointer(HeaderSize))
	buf = appendUint16(buf, q.Type)
	buf = appendUint16(buf, q.Class)
	buf = appendUint32(buf, ttl)
	buf = appendUint16(buf, 4)
	buf = append(buf, address.To4()...)

	return buf
}

// NewErrorResponse builds the wire bytes of a minimal error reply: header only, echoing the
// original request id and carrying the classified RCODE.
func NewErrorResponse(code RCode, id uint16) []byte {
	h := Header{ID: id, QR: true, RCode: code}

	buf := make([]byte, HeaderSize)
	writeHeader(buf, h)

	return buf
}

// ParseUpstreamAnswer decodes the single answer this system expects from an upstream resolver
// reply. It assumes the answer's NAME field is a two-octet compression pointer rather than an
// inline name, matching the fixed-offset response shape this system always emits and therefore
// expects symmetric upstreams to emit back. A reply using an uncompressed name in the answer
// section fails to parse and is mapped to ServFail by the caller.
func ParseUpstreamAnswer(buf []byte) (*Answer, error) {
	if len(buf) < HeaderSize {
		return nil, newError(ServFail, 0, "upstream reply shorter than header")
	}

	h := readHeader(buf)
	if h.ID == 0 || !h.QR || h.RCode != NoError || h.ANCount == 0 {
		return nil, newError(ServFail, h.ID, "invalid or unsuccessful upstream reply")
	}

	name, n, err := decodeName(buf[HeaderSize:])
	if err != nil {
		return nil, newError(ServFail, h.ID, err.Error())
	}

	rest := buf[HeaderSize+n:]
	if len(rest) < 4 {
		return nil, newError(ServFail, h.ID, "truncated upstream question section")
	}

	qType := binary.BigEndian.Uint16(rest[0:2])
	qClass := binary.BigEndian.Uint16(rest[2:4])
	rest = rest[4:]

	// Skip the answer's NAME (assumed compression pointer, 2 octets) plus TYPE, CLASS, TTL, and
	// RDLENGTH (10 octets) to reach RDATA.
	const answerPrefix = 12
	if len(rest) < answerPrefix+4 {
		return nil, newError(ServFail, h.ID, "truncated upstream answer section")
	}
	if rest[0]&0xC0 != 0xC0 {
		return nil, newError(ServFail, h.ID, "upstream answer name is not a compression pointer")
	}

	rdata := rest[answerPrefix : answerPrefix+4]
	address := net.IPv4(rdata[0], rdata[1], rdata[2], rdata[3])

	if name == "" || address.To4() == nil {
		return nil, newError(ServFail, h.ID, "failed to parse answer from upstream")
	}

	return &Answer{
		Name:    name,
		Type:    qType,
		Class:   qClass,
		TTL:     0,
		Address: address,
	}, nil
}

// decodeName decodes a length-prefixed label sequence starting at buf[0], returning the
// dot-joined name and the number of octets consumed (including the terminating zero octet).
func decodeName(buf []byte) (string, int, error) {
	var labels []string
	pos := 0
	totalLen := 0

	for {
		if pos >= len(buf) {
			return "", 0, fmt.Errorf("truncated name")
		}

		labelLen := int(buf[pos])
		pos++

		if labelLen == 0 {
			break
		}
		if labelLen > maxLabelSize {
			return "", 0, fmt.Errorf("label exceeds %d octets", maxLabelSize)
		}
		if pos+labelLen > len(buf) {
			return "", 0, fmt.Errorf("truncated label")
		}

		labels = append(labels, string(buf[pos:pos+labelLen]))
		pos += labelLen

		totalLen += labelLen + 1
		if totalLen+1 > maxNameSize {
			return "", 0, fmt.Errorf("name exceeds %d octets", maxNameSize)
		}
	}

	return strings.Join(labels, "."), pos, nil
}

// encodeName encodes a dot-joined domain name into a length-prefixed label sequence terminated by
// a zero-length label.
func encodeName(name string) []byte {
	var buf []byte

	for _, label := range strings.Split(name, ".") {
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}

	return append(buf, 0)
}

func appendUint16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendUint32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return append(buf, b...)
}
