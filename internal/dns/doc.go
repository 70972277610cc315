// Package dns implements a hand-rolled, intentionally narrow DNS wire-format codec: it parses and
// emits only single-question A/ANY-type, IN/ANY-class messages, with the compression-pointer
// convention this system's responses always use. It does not attempt general RFC 1035 compliance;
// anything outside that subset is rejected with a classified *Error rather than decoded.
package dns
