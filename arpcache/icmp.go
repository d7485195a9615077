package arpcache

import (
	"github.com/nikita-sh/vrouter"
	"github.com/nikita-sh/vrouter/ethernet"
	"github.com/nikita-sh/vrouter/iface"
	"github.com/nikita-sh/vrouter/ipv4"
	"github.com/nikita-sh/vrouter/ipv4/icmpv4"
)

// buildHostUnreachable builds an ICMP Destination Host Unreachable message
// (type 3, code 1) addressed back to the source of the IPv4 packet carried
// in pkt.Frame, to be sent out pkt.InIface. It returns the built frame
// (Ethernet destination left unset) and the next-hop IPv4 address it must
// be resolved against.
func buildHostUnreachable(pkt PendingPacket, ifaces iface.Table) (frame []byte, nextHop [4]byte, err error) {
	self, ok := ifaces.GetByName(pkt.InIface)
	if !ok {
		return nil, nextHop, errUnknownIface
	}
	origIfrm, err := ipv4.NewFrame(pkt.Frame[14:])
	if err != nil {
		return nil, nextHop, err
	}
	origSrc := *origIfrm.SourceAddr()

	const replyLen = 14 + 20 + 8 + 28
	buf := make([]byte, replyLen)
	efrm, _ := ethernet.NewFrame(buf)
	*efrm.SourceHardwareAddr() = self.MAC
	efrm.SetEtherType(ethernet.TypeIPv4)

	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetTotalLength(20 + 8 + 28)
	ifrm.SetTTL(64)
	ifrm.SetProtocol(vrouter.IPProtoICMP)
	ifrm.SetFlags(ipv4.FlagDontFragment)
	*ifrm.SourceAddr() = self.Addr
	*ifrm.DestinationAddr() = origSrc
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	icfrm, _ := icmpv4.NewFrameDestUnreach(ifrm.Payload())
	icfrm.SetType(icmpv4.TypeDestinationUnreachable)
	icfrm.SetCode(icmpv4.CodeHostUnreachable)

	origHeaderLen := origIfrm.HeaderLength()
	end := 14 + origHeaderLen + 8
	if end > len(pkt.Frame) {
		end = len(pkt.Frame)
	}
	icfrm.SetOriginalDatagram(pkt.Frame[14:end])

	var crc vrouter.CRC791
	icfrm.CRCWrite(&crc)
	icfrm.SetCRC(crc.Sum16())

	return buf, origSrc, nil
}
