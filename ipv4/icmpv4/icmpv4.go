package icmpv4

import (
	"encoding/binary"
	"errors"

	"github.com/nikita-sh/vrouter"
)

type Type uint8

const (
	TypeEchoReply Type = 0 // echo reply
	TypeEcho      Type = 8 // echo

	TypeDestinationUnreachable Type = 3  // destination unreachable
	TypeTimeExceeded           Type = 11 // time exceeded
)

// CodeTimeExceeded enumerates the Code field values sent with a
// TypeTimeExceeded message.
type CodeTimeExceeded uint8

const (
	CodeExceededInTransit  CodeTimeExceeded = iota // TTL exceeded in transit
	CodeFragmentReassembly                         // fragment reassembly time exceeded
)

// CodeDestinationUnreachable enumerates the Code field values sent with a
// TypeDestinationUnreachable message.
type CodeDestinationUnreachable uint8

const (
	CodeNetUnreachable     CodeDestinationUnreachable = iota // net unreachable
	CodeHostUnreachable                                      // host unreachable
	CodeProtoUnreachable                                     // protocol unreachable
	CodePortUnreachable                                      // port unreachable
	CodeFragNeededAndDFSet                                   // fragmentation needed and DF set
	CodeSourceRouteFailed                                    // source route failed
)

var (
	errShortFrame = errors.New("icmpv4: short frame")
)

// NewFrame returns a generic Frame with data set to buf. An error is
// returned if buf is smaller than the 8-byte ICMP header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < 8 {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame is the common 8-byte ICMPv4 header shared by every message type.
type Frame struct {
	buf []byte
}

func (frm Frame) Type() Type { return Type(frm.buf[0]) }

func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

func (frm Frame) Code() uint8 { return frm.buf[1] }

func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field of the frame.
func (frm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(frm.buf[2:4])
}

// SetCRC sets the checksum field of the frame.
func (frm Frame) SetCRC(crc uint16) {
	binary.BigEndian.PutUint16(frm.buf[2:4], crc)
}

// CRCWrite calculates the checksum of the ICMP packet. Treats the checksum field as zero as per RFC 792.
func (frm Frame) CRCWrite(crc *vrouter.CRC791) {
	crc.AddUint16(binary.BigEndian.Uint16(frm.buf[0:2]))
	crc.Write(frm.buf[4:])
}

// RawData returns the underlying buffer.
func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) payload() []byte {
	return frm.buf[4:]
}

// FrameEcho is the ICMP echo/echo-reply layout: identifier, sequence number
// and an opaque data payload that an echo reply must copy back verbatim.
type FrameEcho struct {
	Frame
}

func (frm FrameEcho) Identifier() uint16 {
	return binary.BigEndian.Uint16(frm.buf[4:6])
}

func (frm FrameEcho) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(frm.buf[4:6], id)
}

func (frm FrameEcho) SequenceNumber() uint16 {
	return binary.BigEndian.Uint16(frm.buf[6:8])
}

func (frm FrameEcho) SetSequenceNumber(seq uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], seq)
}

func (frm FrameEcho) Data() []byte {
	return frm.buf[8:]
}

// A type-3-shaped message is the 8-byte ICMP header (type, code, checksum,
// unused, next-hop MTU; sizeDestUnreachHeader) followed by the 28 bytes of
// original-datagram data that RFC 792 requires be echoed back to the sender
// (IP header + first 8 bytes of the original payload; sizeOriginalDatagram),
// sizeDestUnreachFrame bytes in all.
const sizeDestUnreachHeader = 8
const sizeOriginalDatagram = 28
const sizeDestUnreachFrame = sizeDestUnreachHeader + sizeOriginalDatagram

// NewFrameDestUnreach returns a FrameDestUnreach with data set to buf. This
// layout is shared by Destination Unreachable (type 3) and Time Exceeded
// (type 11) messages, both of which carry the same 8-byte header plus 28
// bytes of the datagram that triggered the message.
func NewFrameDestUnreach(buf []byte) (FrameDestUnreach, error) {
	if len(buf) < sizeDestUnreachFrame {
		return FrameDestUnreach{}, errShortFrame
	}
	return FrameDestUnreach{Frame: Frame{buf: buf}}, nil
}

// FrameDestUnreach is the type-3-shaped ICMP message layout used for both
// Destination Unreachable and Time Exceeded messages.
type FrameDestUnreach struct {
	Frame
}

func (frm FrameDestUnreach) Code() CodeDestinationUnreachable {
	return CodeDestinationUnreachable(frm.Frame.Code())
}

func (frm FrameDestUnreach) SetCode(code CodeDestinationUnreachable) {
	frm.Frame.SetCode(uint8(code))
}

// NextHopMTU returns the next-hop MTU field, meaningful only when Code is
// CodeFragNeededAndDFSet; zero otherwise.
func (frm FrameDestUnreach) NextHopMTU() uint16 {
	return binary.BigEndian.Uint16(frm.buf[6:8])
}

// SetNextHopMTU sets the next-hop MTU field.
func (frm FrameDestUnreach) SetNextHopMTU(mtu uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], mtu)
}

// OriginalDatagram returns the trailing 28 bytes of the packet that
// triggered this message: its IP header plus the first 8 bytes of payload.
func (frm FrameDestUnreach) OriginalDatagram() []byte {
	return frm.buf[sizeDestUnreachHeader:sizeDestUnreachFrame]
}

// SetOriginalDatagram copies up to 28 bytes of src into the original
// datagram field, zero-padding any remainder.
func (frm FrameDestUnreach) SetOriginalDatagram(src []byte) {
	dst := frm.OriginalDatagram()
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
