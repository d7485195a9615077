package arpcache

import (
	"sync"
	"testing"
	"time"

	"github.com/nikita-sh/vrouter/arp"
	"github.com/nikita-sh/vrouter/ethernet"
	"github.com/nikita-sh/vrouter/iface"
)

type sentFrame struct {
	frame    []byte
	outIface string
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []sentFrame
}

func (r *recordingTransport) Send(frame []byte, outIface string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]byte(nil), frame...)
	r.sent = append(r.sent, sentFrame{frame: cp, outIface: outIface})
	return nil
}

func (r *recordingTransport) snapshot() []sentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentFrame(nil), r.sent...)
}

func testTable(t *testing.T) iface.Table {
	t.Helper()
	tbl, err := iface.NewTable([]iface.Interface{
		{Name: "eth0", MAC: [6]byte{0xaa, 0, 0, 0, 0, 1}, Addr: [4]byte{10, 0, 0, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

// testFrame returns an Ethernet+IPv4 shaped buffer (header bytes left
// zeroed) long enough for code that parses the embedded IPv4 header, such
// as buildHostUnreachable.
func testFrame(t *testing.T, payloadLen int) []byte {
	t.Helper()
	return make([]byte, 14+20+payloadLen)
}

func TestLookupInsert(t *testing.T) {
	tr := &recordingTransport{}
	c, err := NewCache(Config{Ifaces: testTable(t), Transport: tr})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup([4]byte{10, 0, 0, 2}); ok {
		t.Fatal("expected no entry before insert")
	}
	mac := [6]byte{0xbb, 1, 2, 3, 4, 5}
	c.Insert([4]byte{10, 0, 0, 2}, mac)
	got, ok := c.Lookup([4]byte{10, 0, 0, 2})
	if !ok || got != mac {
		t.Fatalf("expected resolved entry %x, got %x ok=%v", mac, got, ok)
	}
}

func TestLookupExpiresEntry(t *testing.T) {
	tr := &recordingTransport{}
	c, err := NewCache(Config{Ifaces: testTable(t), Transport: tr, EntryLifetime: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	c.Insert([4]byte{10, 0, 0, 2}, [6]byte{0xbb})
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Lookup([4]byte{10, 0, 0, 2}); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestQueueDrainsInFIFOOrderOnInsert(t *testing.T) {
	tr := &recordingTransport{}
	c, err := NewCache(Config{Ifaces: testTable(t), Transport: tr, RetryInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	target := [4]byte{10, 0, 0, 2}
	for i := 0; i < 3; i++ {
		frame := testFrame(t, 4)
		frame[34] = byte(i) // distinguishing marker, past the IPv4 header
		if err := c.SendOrQueue(frame, "eth0", "eth0", target); err != nil {
			t.Fatal(err)
		}
	}
	// First SendOrQueue call should have broadcast an ARP request.
	sent := tr.snapshot()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one ARP request broadcast, got %d sends", len(sent))
	}

	mac := [6]byte{0xcc, 1, 2, 3, 4, 5}
	c.Insert(target, mac)

	sent = tr.snapshot()
	if len(sent) != 4 { // 1 ARP request + 3 drained packets
		t.Fatalf("expected 4 total sends after insert, got %d", len(sent))
	}
	for i, s := range sent[1:] {
		efrm, err := ethernet.NewFrame(s.frame)
		if err != nil {
			t.Fatal(err)
		}
		if *efrm.DestinationHardwareAddr() != mac {
			t.Errorf("packet %d: expected dst mac %x, got %x", i, mac, *efrm.DestinationHardwareAddr())
		}
		if s.frame[34] != byte(i) {
			t.Errorf("packet %d: expected FIFO marker %d, got %d", i, i, s.frame[34])
		}
	}
}

func TestHandleRequestRespectsRetryInterval(t *testing.T) {
	tr := &recordingTransport{}
	c, err := NewCache(Config{Ifaces: testTable(t), Transport: tr, RetryInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	req := c.Queue([4]byte{10, 0, 0, 2}, testFrame(t, 4), "eth0", "eth0")
	if err := c.HandleRequest(req); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleRequest(req); err != nil {
		t.Fatal(err)
	}
	if len(tr.snapshot()) != 1 {
		t.Fatalf("expected retry to be suppressed within the retry interval, got %d sends", len(tr.snapshot()))
	}
}

func TestRetryCapBouncesHostUnreachable(t *testing.T) {
	tr := &recordingTransport{}
	c, err := NewCache(Config{Ifaces: testTable(t), Transport: tr, RetryInterval: time.Microsecond, RetryCap: 2})
	if err != nil {
		t.Fatal(err)
	}
	target := [4]byte{10, 0, 0, 2}
	req := c.Queue(target, testFrame(t, 4), "eth0", "eth0")
	for i := 0; i < 2; i++ {
		if err := c.HandleRequest(req); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	// Third call should find send_count >= cap and bounce the packet.
	if err := c.HandleRequest(req); err != nil {
		t.Fatal(err)
	}
	if _, pending := c.pending[target]; pending {
		t.Fatal("expected pending request to have been destroyed")
	}
	// The Host Unreachable is itself sent through SendOrQueue; its
	// destination is not in the cache, so the last frame sent is the ARP
	// request resolving it, out the packet's inbound interface.
	sent := tr.snapshot()
	last := sent[len(sent)-1]
	if last.outIface != "eth0" {
		t.Fatalf("expected host unreachable's ARP request out eth0, got %s", last.outIface)
	}
}

func TestBroadcastRequestShape(t *testing.T) {
	tr := &recordingTransport{}
	c, err := NewCache(Config{Ifaces: testTable(t), Transport: tr})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.broadcastRequest("eth0", [4]byte{10, 0, 0, 9}); err != nil {
		t.Fatal(err)
	}
	sent := tr.snapshot()
	if len(sent) != 1 {
		t.Fatalf("expected one ARP request sent, got %d", len(sent))
	}
	efrm, err := ethernet.NewFrame(sent[0].frame)
	if err != nil {
		t.Fatal(err)
	}
	if !efrm.IsBroadcast() {
		t.Error("expected broadcast ethernet destination")
	}
	if efrm.EtherTypeOrSize() != ethernet.TypeARP {
		t.Error("expected ARP ethertype")
	}
	afrm, err := arp.NewFrame(efrm.Payload())
	if err != nil {
		t.Fatal(err)
	}
	if afrm.Operation() != arp.OpRequest {
		t.Error("expected request operation")
	}
	_, targetProto := afrm.Target()
	if *targetProto != [4]byte{10, 0, 0, 9} {
		t.Errorf("unexpected ARP target proto addr: %v", *targetProto)
	}
}
