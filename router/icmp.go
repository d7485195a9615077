package router

import (
	"github.com/nikita-sh/vrouter"
	"github.com/nikita-sh/vrouter/ethernet"
	"github.com/nikita-sh/vrouter/ipv4"
	"github.com/nikita-sh/vrouter/ipv4/icmpv4"
)

// buildICMPError builds a type-3/type-11-shaped ICMP error message carrying
// up to the first 28 bytes of origIfrm's raw data (its own IPv4 header plus
// the start of its payload), addressed from srcAddr back to the datagram's
// own source address. The returned frame's Ethernet destination is left
// unset; the caller resolves and fills it via the ARP cache.
func buildICMPError(origIfrm ipv4.Frame, srcMAC [6]byte, srcAddr [4]byte, icmpType icmpv4.Type, code icmpv4.CodeDestinationUnreachable) (frame []byte, nextHop [4]byte) {
	origSrc := *origIfrm.SourceAddr()

	const replyLen = 14 + 20 + 8 + 28
	buf := make([]byte, replyLen)
	efrm, _ := ethernet.NewFrame(buf)
	*efrm.SourceHardwareAddr() = srcMAC
	efrm.SetEtherType(ethernet.TypeIPv4)

	ifrm, _ := ipv4.NewFrame(efrm.Payload())
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetTotalLength(20 + 8 + 28)
	ifrm.SetTTL(generatedTTL)
	ifrm.SetProtocol(vrouter.IPProtoICMP)
	ifrm.SetFlags(ipv4.FlagDontFragment)
	*ifrm.SourceAddr() = srcAddr
	*ifrm.DestinationAddr() = origSrc
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	icfrm, _ := icmpv4.NewFrameDestUnreach(ifrm.Payload())
	icfrm.SetType(icmpType)
	icfrm.SetCode(code)

	origData := origIfrm.RawData()
	end := origIfrm.HeaderLength() + 8
	if end > len(origData) {
		end = len(origData)
	}
	icfrm.SetOriginalDatagram(origData[:end])

	var crc vrouter.CRC791
	icfrm.CRCWrite(&crc)
	icfrm.SetCRC(crc.Sum16())

	return buf, origSrc
}
