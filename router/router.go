package router

import (
	"log/slog"

	"github.com/nikita-sh/vrouter"
	"github.com/nikita-sh/vrouter/arp"
	"github.com/nikita-sh/vrouter/ethernet"
	"github.com/nikita-sh/vrouter/iface"
	"github.com/nikita-sh/vrouter/ipv4"
	"github.com/nikita-sh/vrouter/ipv4/icmpv4"
)

// Receive is the entry point invoked once per inbound frame, frame complete
// with its Ethernet header, received on the named local interface inIface.
// Receive always handles the frame to completion internally (replying,
// forwarding or dropping it); its error return exists for logging and test
// introspection via errors.Is, not for the caller to act on.
func (r *Router) Receive(frame []byte, inIface string) error {
	if _, ok := r.ifaces.GetByName(inIface); !ok {
		r.incDropped("unknown_inbound_interface")
		return ErrUnknownInterface
	}
	efrm, err := ethernet.NewFrame(frame)
	if err != nil {
		r.incDropped("short_frame")
		return ErrShortFrame
	}
	switch efrm.EtherTypeOrSize() {
	case ethernet.TypeARP:
		return r.handleARP(efrm, inIface)
	case ethernet.TypeIPv4:
		return r.handleIPv4(efrm, inIface)
	default:
		r.incDropped("unknown_ethertype")
		r.debug("router: dropping frame, unrecognized ethertype", slog.Any("ethertype", efrm.EtherTypeOrSize()))
		return ErrUnknownEtherType
	}
}

func (r *Router) handleARP(efrm ethernet.Frame, inIface string) error {
	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		r.incDropped("short_arp")
		return err
	}
	var v vrouter.Validator
	afrm.ValidateSize(&v)
	if err := v.ErrPop(); err != nil {
		r.incDropped("short_arp")
		return err
	}

	_, targetProto := afrm.Target()
	self, ok := r.ifaces.GetByIPv4(*targetProto)
	if !ok {
		// Not addressed to any of our interfaces; not our concern.
		return nil
	}

	switch afrm.Operation() {
	case arp.OpRequest:
		return r.replyARP(efrm, afrm, self, inIface)
	case arp.OpReply:
		senderHW, senderProto := afrm.Sender()
		r.cache.Insert(*senderProto, *senderHW)
		return nil
	default:
		r.incDropped("unknown_arp_opcode")
		r.debug("router: dropping ARP packet with unrecognized opcode", slog.Any("op", afrm.Operation()))
		return ErrUnknownARPOpcode
	}
}

func (r *Router) replyARP(efrm ethernet.Frame, afrm arp.Frame, self iface.Interface, inIface string) error {
	buf := append([]byte(nil), efrm.RawData()...)
	rEfrm, _ := ethernet.NewFrame(buf)
	rAfrm, _ := arp.NewFrame(rEfrm.Payload())

	*rEfrm.DestinationHardwareAddr() = *efrm.SourceHardwareAddr()
	*rEfrm.SourceHardwareAddr() = self.MAC

	rAfrm.SwapTargetSender()
	rAfrm.SetOperation(arp.OpReply)
	senderHW, senderProto := rAfrm.Sender()
	*senderHW = self.MAC
	*senderProto = self.Addr

	r.info("router: replying to ARP request", slog.Any("who-has", self.Addr))
	return r.transport.Send(buf, inIface)
}

func (r *Router) handleIPv4(efrm ethernet.Frame, inIface string) error {
	ifrm, err := ipv4.NewFrame(efrm.Payload())
	if err != nil {
		r.incDropped("short_ipv4")
		return err
	}
	var v vrouter.Validator
	ifrm.ValidateExceptCRC(&v)
	if err := v.ErrPop(); err != nil {
		r.incDropped("bad_ipv4_header")
		return err
	}
	gotCRC := ifrm.CRC()
	wantCRC := ifrm.CalculateHeaderCRC()
	if gotCRC != wantCRC {
		r.incDropped("bad_checksum")
		r.debug("router: IPv4 checksum mismatch", slog.Uint64("want", uint64(wantCRC)), slog.Uint64("got", uint64(gotCRC)))
		return ErrBadChecksum
	}

	if _, ok := r.ifaces.GetByIPv4(*ifrm.DestinationAddr()); ok {
		return r.receiveLocal(ifrm, inIface)
	}
	return r.forward(efrm, ifrm, inIface)
}

func (r *Router) receiveLocal(ifrm ipv4.Frame, inIface string) error {
	switch ifrm.Protocol() {
	case vrouter.IPProtoICMP:
		icfrm, err := icmpv4.NewFrame(ifrm.Payload())
		if err != nil {
			r.incDropped("short_icmp")
			return err
		}
		gotICMPCRC := icfrm.CRC()
		var icmpCRC vrouter.CRC791
		icfrm.CRCWrite(&icmpCRC)
		if wantICMPCRC := icmpCRC.Sum16(); gotICMPCRC != wantICMPCRC {
			r.incDropped("bad_checksum")
			r.debug("router: ICMP checksum mismatch", slog.Uint64("want", uint64(wantICMPCRC)), slog.Uint64("got", uint64(gotICMPCRC)))
			return ErrBadChecksum
		}
		if icfrm.Type() != icmpv4.TypeEcho {
			r.incDropped("unsupported_icmp_type")
			r.debug("router: dropping non-echo ICMP addressed to us", slog.Int("type", int(icfrm.Type())))
			return nil
		}
		return r.sendEchoReply(ifrm, inIface)
	case vrouter.IPProtoTCP, vrouter.IPProtoUDP:
		return r.sendDestUnreach(ifrm, inIface, icmpv4.CodePortUnreachable, true, "port_unreachable")
	default:
		r.incDropped("unsupported_ip_protocol")
		return ErrUnknownIPProtocol
	}
}

func (r *Router) sendEchoReply(ifrm ipv4.Frame, inIface string) error {
	self, ok := r.ifaces.GetByName(inIface)
	if !ok {
		return ErrUnknownInterface
	}

	buf := append([]byte(nil), ifrm.RawData()[:ifrm.TotalLength()]...)
	rIfrm, _ := ipv4.NewFrame(buf)
	src, dst := *rIfrm.SourceAddr(), *rIfrm.DestinationAddr()
	*rIfrm.SourceAddr() = dst
	*rIfrm.DestinationAddr() = src
	rIfrm.SetCRC(rIfrm.CalculateHeaderCRC())

	rIcfrm, _ := icmpv4.NewFrame(rIfrm.Payload())
	rIcfrm.SetType(icmpv4.TypeEchoReply)
	rIcfrm.SetCode(0)
	var crc vrouter.CRC791
	rIcfrm.CRCWrite(&crc)
	rIcfrm.SetCRC(crc.Sum16())

	ethBuf := make([]byte, 14+len(buf))
	efrm, _ := ethernet.NewFrame(ethBuf)
	*efrm.SourceHardwareAddr() = self.MAC
	efrm.SetEtherType(ethernet.TypeIPv4)
	copy(efrm.Payload(), buf)

	r.incICMPGenerated("echo_reply")
	r.info("router: sending ICMP echo reply", slog.Any("to", src))
	return r.cache.SendOrQueue(ethBuf, inIface, inIface, src)
}

func (r *Router) sendDestUnreach(ifrm ipv4.Frame, inIface string, code icmpv4.CodeDestinationUnreachable, srcIsOrigDst bool, kind string) error {
	self, ok := r.ifaces.GetByName(inIface)
	if !ok {
		return ErrUnknownInterface
	}
	srcAddr := self.Addr
	if srcIsOrigDst {
		srcAddr = *ifrm.DestinationAddr()
	}
	ipBuf, nextHop := buildICMPError(ifrm, self.MAC, srcAddr, icmpv4.TypeDestinationUnreachable, code)

	r.incICMPGenerated(kind)
	return r.cache.SendOrQueue(ipBuf, inIface, inIface, nextHop)
}

func (r *Router) sendTimeExceeded(ifrm ipv4.Frame, inIface string) error {
	self, ok := r.ifaces.GetByName(inIface)
	if !ok {
		return ErrUnknownInterface
	}
	buf, nextHop := buildICMPError(ifrm, self.MAC, self.Addr, icmpv4.TypeTimeExceeded,
		icmpv4.CodeDestinationUnreachable(icmpv4.CodeExceededInTransit))

	r.incICMPGenerated("time_exceeded")
	return r.cache.SendOrQueue(buf, inIface, inIface, nextHop)
}

// forward implements longest-prefix-match forwarding: it decrements TTL,
// sending a Time Exceeded message and stopping if it reaches zero (unlike
// the legacy implementation this router replaces, which kept forwarding a
// zero-TTL packet after emitting the ICMP message); otherwise it looks up a
// route, recomputes the header checksum and hands the packet to the ARP
// cache's send-or-queue path.
func (r *Router) forward(efrm ethernet.Frame, ifrm ipv4.Frame, inIface string) error {
	// Work on a copy: the received frame belongs to the transport, and a
	// frame queued awaiting ARP resolution outlives this call.
	buf := append([]byte(nil), efrm.RawData()...)
	efrm, _ = ethernet.NewFrame(buf)
	ifrm, _ = ipv4.NewFrame(efrm.Payload())

	ttl := ifrm.TTL()
	if ttl <= 1 {
		if err := r.sendTimeExceeded(ifrm, inIface); err != nil {
			r.warn("router: failed to send time exceeded", slog.String("err", err.Error()))
		}
		return ErrTTLExpired
	}
	ifrm.SetTTL(ttl - 1)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	rt, ok := r.routes.LPM(*ifrm.DestinationAddr())
	if !ok {
		if err := r.sendDestUnreach(ifrm, inIface, icmpv4.CodeNetUnreachable, false, "net_unreachable"); err != nil {
			r.warn("router: failed to send net unreachable", slog.String("err", err.Error()))
		}
		return ErrNoRoute
	}
	outSelf, ok := r.ifaces.GetByName(rt.IfaceName)
	if !ok {
		r.incDropped("unknown_outbound_interface")
		return ErrUnknownInterface
	}
	*efrm.SourceHardwareAddr() = outSelf.MAC

	nextHop := rt.Gateway
	if nextHop == ([4]byte{}) {
		nextHop = *ifrm.DestinationAddr()
	}
	r.incForwarded()
	return r.cache.SendOrQueue(efrm.RawData(), rt.IfaceName, inIface, nextHop)
}
