package arp

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"github.com/nikita-sh/vrouter"
	"github.com/nikita-sh/vrouter/ethernet"
)

// NewFrame returns a Frame with data set to buf.
// An error is returned if the buffer is smaller than the fixed 28-byte
// Ethernet/IPv4 ARP packet size.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortARP
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an ARP packet carrying Ethernet
// hardware addresses and IPv4 protocol addresses, and provides methods for
// manipulating, validating and retrieving its fields. See [RFC826].
//
// [RFC826]: https://tools.ietf.org/html/rfc826
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (afrm Frame) RawData() []byte { return afrm.buf }

// Hardware returns the hardware type field; this router only understands
// Ethernet (1) and the 6-byte hardware address length that goes with it.
func (afrm Frame) Hardware() uint16 { return binary.BigEndian.Uint16(afrm.buf[0:2]) }

// SetHardware sets the hardware type field and fixes the hardware address
// length to 6 (Ethernet).
func (afrm Frame) SetHardware(typ uint16) {
	binary.BigEndian.PutUint16(afrm.buf[0:2], typ)
	afrm.buf[4] = hwAddrLen
}

// Protocol returns the protocol type field. See [ethernet.Type].
func (afrm Frame) Protocol() ethernet.Type {
	return ethernet.Type(binary.BigEndian.Uint16(afrm.buf[2:4]))
}

// SetProtocol sets the protocol type field and fixes the protocol address
// length to 4 (IPv4).
func (afrm Frame) SetProtocol(typ ethernet.Type) {
	binary.BigEndian.PutUint16(afrm.buf[2:4], uint16(typ))
	afrm.buf[5] = protoAddrLen
}

// Operation returns the ARP header operation field. See [Operation].
func (afrm Frame) Operation() Operation { return Operation(binary.BigEndian.Uint16(afrm.buf[6:8])) }

// SetOperation sets the ARP header operation field. See [Operation].
func (afrm Frame) SetOperation(op Operation) { binary.BigEndian.PutUint16(afrm.buf[6:8], uint16(op)) }

// Sender returns the hardware (MAC) and protocol (IPv4) addresses of the
// sender of the ARP packet. In a request these identify the requester; in a
// reply these identify the host that was being looked for.
func (afrm Frame) Sender() (hardwareAddr *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[8:14]), (*[4]byte)(afrm.buf[14:18])
}

// Target returns the hardware (MAC) and protocol (IPv4) addresses of the
// target of the ARP packet. In a request the hardware address is ignored;
// in a reply it identifies the host that originated the request.
func (afrm Frame) Target() (hardwareAddr *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[18:24]), (*[4]byte)(afrm.buf[24:28])
}

// ClearHeader zeros out the fixed header contents.
func (afrm Frame) ClearHeader() {
	for i := range afrm.buf[:sizeHeader] {
		afrm.buf[i] = 0
	}
}

// SwapTargetSender exchanges the sender and target fields in place; used to
// turn a received request into the basis of a reply.
func (afrm Frame) SwapTargetSender() {
	hwTarget, protoTarget := afrm.Target()
	hwSender, protoSender := afrm.Sender()
	*hwTarget, *hwSender = *hwSender, *hwTarget
	*protoTarget, *protoSender = *protoSender, *protoTarget
}

//
// Validation API.
//

// ValidateSize checks the frame buffer is at least as long as the fixed
// Ethernet/IPv4 ARP packet size. It adds an error to v on finding an
// inconsistency.
func (afrm Frame) ValidateSize(v *vrouter.Validator) {
	if len(afrm.buf) < sizeHeader {
		v.AddError(errShortARP)
	}
}

func (afrm Frame) String() string {
	sndhw, sndpt := afrm.Sender()
	tgthw, tgtpt := afrm.Target()
	sender, _ := netip.AddrFromSlice(sndpt[:])
	target, _ := netip.AddrFromSlice(tgtpt[:])
	return fmt.Sprintf("ARP %s SENDER=(%s,%s) TARGET=(%s,%s)",
		afrm.Operation(), net.HardwareAddr(sndhw[:]), sender,
		net.HardwareAddr(tgthw[:]), target)
}
