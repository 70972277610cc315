package dns

import (
	"net"
	"strings"
	"testing"
)

func buildQuery(id uint16, qr bool, rd bool, qdcount uint16, name string, qtype uint16, qclass uint16) []byte {
	h := Header{ID: id, QR: qr, Opcode: OpcodeStandard, RD: rd, QDCount: qdcount}

	buf := make([]byte, HeaderSize)
	writeHeader(buf, h)
	buf = append(buf, encodeName(name)...)
	buf = appendUint16(buf, qtype)
	buf = appendUint16(buf, qclass)

	return buf
}

func TestParseQuerySuccess(t *testing.T) {
	buf := buildQuery(1, false, true, 1, "example.com", TypeA, ClassIN)

	q, err := ParseQuery(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Header.ID != 1 {
		t.Errorf("expected ID 1, got %d", q.Header.ID)
	}
	if q.Name != "example.com" {
		t.Errorf("expected name example.com, got %s", q.Name)
	}
	if q.Type != TypeA {
		t.Errorf("expected type %d, got %d", TypeA, q.Type)
	}
	if q.Class != ClassIN {
		t.Errorf("expected class %d, got %d", ClassIN, q.Class)
	}
}

func TestParseQueryRejectsTooShort(t *testing.T) {
	_, err := ParseQuery(make([]byte, HeaderSize-1))
	assertDNSError(t, err, FormErr)
}

func TestParseQueryRejectsZeroID(t *testing.T) {
	buf := buildQuery(0, false, true, 1, "example.com", TypeA, ClassIN)
	_, err := ParseQuery(buf)
	assertDNSError(t, err, FormErr)
}

func TestParseQueryRejectsResponseFlag(t *testing.T) {
	buf := buildQuery(1, true, true, 1, "example.com", TypeA, ClassIN)
	_, err := ParseQuery(buf)
	assertDNSError(t, err, FormErr)
}

func TestParseQueryRejectsUnsupportedType(t *testing.T) {
	const typeMX = 0x0F
	buf := buildQuery(1, false, true, 1, "example.com", typeMX, ClassIN)
	_, err := ParseQuery(buf)
	assertDNSError(t, err, NotImp)
}

func TestParseQueryRejectsMultipleQuestions(t *testing.T) {
	buf := buildQuery(1, false, true, 2, "example.com", TypeA, ClassIN)
	_, err := ParseQuery(buf)
	assertDNSError(t, err, NotImp)
}

func TestParseQueryAcceptsANYTypeAndClass(t *testing.T) {
	buf := buildQuery(1, false, true, 1, "example.com", TypeANY, ClassANY)

	if _, err := ParseQuery(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryEncodeZeroesARCount(t *testing.T) {
	buf := buildQuery(1, false, true, 1, "example.com", TypeA, ClassIN)
	q, err := ParseQuery(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q.Header.ARCount = 5

	encoded := q.Encode()
	h := readHeader(encoded)

	if h.ARCount != 0 {
		t.Errorf("expected Encode to zero ARCount, got %d", h.ARCount)
	}
}

func TestNewAnswerResponseFields(t *testing.T) {
	buf := buildQuery(55, false, true, 1, "example.com", TypeA, ClassIN)
	q, err := ParseQuery(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	address := net.ParseIP("93.184.216.34")
	resp := NewAnswerResponse(q, address, 60)

	h := readHeader(resp)
	if h.ID != 55 {
		t.Errorf("expected ID 55, got %d", h.ID)
	}
	if !h.QR {
		t.Error("expected QR to be set on a response")
	}
	if !h.RD {
		t.Error("expected RD to be echoed from the query")
	}
	if h.ANCount != 1 {
		t.Errorf("expected ANCount 1, got %d", h.ANCount)
	}
	if h.RCode != NoError {
		t.Errorf("expected NoError, got %v", h.RCode)
	}

	rdata := resp[len(resp)-4:]
	if !net.IP(rdata).Equal(address.To4()) {
		t.Errorf("expected trailing RDATA to equal %v, got %v", address.To4(), net.IP(rdata))
	}
}

func TestNewErrorResponseIsHeaderOnly(t *testing.T) {
	resp := NewErrorResponse(ServFail, 99)

	if len(resp) != HeaderSize {
		t.Fatalf("expected an error response to be exactly %d octets, got %d", HeaderSize, len(resp))
	}

	h := readHeader(resp)
	if h.ID != 99 {
		t.Errorf("expected ID 99, got %d", h.ID)
	}
	if h.RCode != ServFail {
		t.Errorf("expected RCode ServFail, got %v", h.RCode)
	}
	if !h.QR {
		t.Error("expected QR to be set")
	}
}

func buildUpstreamAnswer(id uint16, rcode RCode, ancount uint16, name string, qtype uint16, qclass uint16, address net.IP) []byte {
	h := Header{ID: id, QR: true, RCode: rcode, QDCount: 1, ANCount: ancount}

	buf := make([]byte, HeaderSize)
	writeHeader(buf, h)
	buf = append(buf, encodeName(name)...)
	buf = appendUint16(buf, qtype)
	buf = appendUint16(buf, qclass)

	// Answer section: a two-octet compression pointer NAME, then TYPE, CLASS, TTL, RDLENGTH, RDATA.
	buf = appendUint16(buf, compressionPointer(HeaderSize))
	buf = appendUint16(buf, qtype)
	buf = appendUint16(buf, qclass)
	buf = appendUint32(buf, 60)
	buf = appendUint16(buf, 4)
	buf = append(buf, address.To4()...)

	return buf
}

func TestParseUpstreamAnswerSuccess(t *testing.T) {
	address := net.ParseIP("172.217.14.206")
	buf := buildUpstreamAnswer(7, NoError, 1, "example.com", TypeA, ClassIN, address)

	answer, err := ParseUpstreamAnswer(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Name != "example.com" {
		t.Errorf("expected name example.com, got %s", answer.Name)
	}
	if !answer.Address.Equal(address) {
		t.Errorf("expected address %v, got %v", address, answer.Address)
	}
}

func TestParseUpstreamAnswerRejectsNoAnswers(t *testing.T) {
	buf := buildUpstreamAnswer(7, NoError, 0, "example.com", TypeA, ClassIN, net.ParseIP("1.1.1.1"))
	_, err := ParseUpstreamAnswer(buf)
	assertDNSError(t, err, ServFail)
}

func TestParseUpstreamAnswerRejectsFailureRCode(t *testing.T) {
	buf := buildUpstreamAnswer(7, ServFail, 1, "example.com", TypeA, ClassIN, net.ParseIP("1.1.1.1"))
	_, err := ParseUpstreamAnswer(buf)
	assertDNSError(t, err, ServFail)
}

func TestParseUpstreamAnswerRejectsNonResponse(t *testing.T) {
	h := Header{ID: 7, QR: false, QDCount: 1, ANCount: 1}
	buf := make([]byte, HeaderSize)
	writeHeader(buf, h)
	buf = append(buf, encodeName("example.com")...)
	buf = appendUint16(buf, TypeA)
	buf = appendUint16(buf, ClassIN)

	_, err := ParseUpstreamAnswer(buf)
	assertDNSError(t, err, ServFail)
}

func TestEncodeDecodeNameRoundTrip(t *testing.T) {
	names := []string{"example.com", "a.b.c.example.org", "localhost"}

	for _, name := range names {
		encoded := encodeName(name)
		decoded, n, err := decodeName(encoded)
		if err != nil {
			t.Fatalf("unexpected error decoding %q: %v", name, err)
		}
		if decoded != name {
			t.Errorf("expected %q, got %q", name, decoded)
		}
		if n != len(encoded) {
			t.Errorf("expected decodeName to consume %d octets, consumed %d", len(encoded), n)
		}
	}
}

func TestDecodeNameRejectsOverlongLabel(t *testing.T) {
	label := strings.Repeat("a", maxLabelSize+1)
	buf := append([]byte{byte(len(label))}, label...)
	buf = append(buf, 0)

	if _, _, err := decodeName(buf); err == nil {
		t.Error("expected an error decoding a label longer than 63 octets")
	}
}

func TestDecodeNameRejectsOverlongName(t *testing.T) {
	label := strings.Repeat("a", maxLabelSize)
	var name []string
	for i := 0; i < 5; i++ {
		name = append(name, label)
	}

	encoded := encodeName(strings.Join(name, "."))
	if _, _, err := decodeName(encoded); err == nil {
		t.Error("expected an error decoding a name longer than 255 octets")
	}
}

func TestDecodeNameRejectsTruncatedBuffer(t *testing.T) {
	if _, _, err := decodeName([]byte{5, 'a', 'b'}); err == nil {
		t.Error("expected an error decoding a truncated label")
	}
}

func assertDNSError(t *testing.T, err error, code RCode) {
	t.Helper()

	dnsErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected a *Error, got %T (%v)", err, err)
	}
	if dnsErr.Code != code {
		t.Errorf("expected RCode %v, got %v", code, dnsErr.Code)
	}
}
