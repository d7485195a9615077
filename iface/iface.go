// Package iface provides a read-only table of the router's local network
// interfaces: their name, hardware address and IPv4 address, used to
// recognize locally-destined traffic and as the source address/MAC when
// the router originates a frame of its own (ARP requests/replies, ICMP
// errors, echo replies).
package iface

import (
	"errors"
	"fmt"
)

// Interface describes one of the router's local network interfaces.
type Interface struct {
	Name string
	MAC  [6]byte
	Addr [4]byte
}

func (i Interface) String() string {
	return fmt.Sprintf("%s(mac=%x,addr=%d.%d.%d.%d)", i.Name, i.MAC, i.Addr[0], i.Addr[1], i.Addr[2], i.Addr[3])
}

var (
	errDuplicateName = errors.New("iface: duplicate interface name")
	errDuplicateAddr = errors.New("iface: duplicate interface address")
	errNoInterfaces  = errors.New("iface: empty interface table")
)

// Table is a read-only lookup table over a fixed set of interfaces,
// addressable by name or by IPv4 address.
type Table struct {
	byName map[string]Interface
	byAddr map[[4]byte]Interface
	ifaces []Interface
}

// NewTable builds a Table from ifaces. It returns an error if ifaces is
// empty or contains a duplicate name or address.
func NewTable(ifaces []Interface) (Table, error) {
	if len(ifaces) == 0 {
		return Table{}, errNoInterfaces
	}
	t := Table{
		byName: make(map[string]Interface, len(ifaces)),
		byAddr: make(map[[4]byte]Interface, len(ifaces)),
		ifaces: append([]Interface(nil), ifaces...),
	}
	for _, i := range t.ifaces {
		if _, exists := t.byName[i.Name]; exists {
			return Table{}, errDuplicateName
		}
		if _, exists := t.byAddr[i.Addr]; exists {
			return Table{}, errDuplicateAddr
		}
		t.byName[i.Name] = i
		t.byAddr[i.Addr] = i
	}
	return t, nil
}

// GetByName returns the interface registered under name.
func (t Table) GetByName(name string) (Interface, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// GetByIPv4 returns the interface whose local address is addr.
func (t Table) GetByIPv4(addr [4]byte) (Interface, bool) {
	i, ok := t.byAddr[addr]
	return i, ok
}

// All returns every interface in the table, in the order NewTable received them.
func (t Table) All() []Interface {
	return t.ifaces
}
