// Package kernel wraps the Linux netlink link/address API behind a small,
// synchronous interface the reconciler depends on. No journaling or
// retry logic lives here; callers record forward mutations themselves.
package kernel

import (
	"net"

	"github.com/vishvananda/netlink"

	"github.com/vxlanevpn/reconciler/pkg/util"
)

const vxlanUDPPort = 4789
const vxlanTTL = 64

// Facade is the kernel link/address operation set the reconciler consumes.
// Every method is synchronous; failures are returned as *util.KernelError.
type Facade interface {
	Lookup(name string) (int, bool, error)
	UnderlayIPv4(ifname string) (net.IP, error)

	CreateVxlan(name string, vni int, localIP net.IP) error
	CreateBridge(name string) error
	CreateVlan(name, parent string, vlanID int) error
	CreateVrf(name string, tableID int) error
	CreateVethPair(inName, extName string) error

	DeleteLink(name string) error

	AddAddr(ifname, cidr string) error
	DelAddr(ifname, cidr string) error

	SetMaster(slave, master string) error
	ClearMaster(slave string) error

	SetMac(ifname, mac string) error
}

// Netlink is the real Facade implementation, backed by vishvananda/netlink.
type Netlink struct{}

var _ Facade = (*Netlink)(nil)

// New returns a Facade talking to the live kernel netlink socket.
func New() Facade {
	return &Netlink{}
}

func (n *Netlink) Lookup(name string) (int, bool, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, util.NewKernelError("lookup", name, err)
	}
	return link.Attrs().Index, true, nil
}

func (n *Netlink) UnderlayIPv4(ifname string) (net.IP, error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return nil, util.NewKernelError("lookup", ifname, err)
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, util.NewKernelError("list-addr", ifname, err)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, nil
}

func (n *Netlink) CreateVxlan(name string, vni int, localIP net.IP) error {
	vx := &netlink.Vxlan{
		LinkAttrs: netlink.LinkAttrs{Name: name},
		VxlanId:   vni,
		SrcAddr:   localIP,
		Port:      vxlanUDPPort,
		TTL:       vxlanTTL,
		Learning:  false,
	}
	if err := netlink.LinkAdd(vx); err != nil {
		return util.NewKernelError("create-vxlan", name, err)
	}
	return n.up(name, "create-vxlan")
}

func (n *Netlink) CreateBridge(name string) error {
	br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(br); err != nil {
		return util.NewKernelError("create-bridge", name, err)
	}
	return n.up(name, "create-bridge")
}

func (n *Netlink) CreateVlan(name, parent string, vlanID int) error {
	parentLink, err := netlink.LinkByName(parent)
	if err != nil {
		return util.NewKernelError("create-vlan", name, err)
	}
	vlan := &netlink.Vlan{
		LinkAttrs: netlink.LinkAttrs{Name: name, ParentIndex: parentLink.Attrs().Index},
		VlanId:    vlanID,
	}
	if err := netlink.LinkAdd(vlan); err != nil {
		return util.NewKernelError("create-vlan", name, err)
	}
	return n.up(name, "create-vlan")
}

func (n *Netlink) CreateVrf(name string, tableID int) error {
	vrf := &netlink.Vrf{
		LinkAttrs: netlink.LinkAttrs{Name: name},
		Table:     uint32(tableID),
	}
	if err := netlink.LinkAdd(vrf); err != nil {
		return util.NewKernelError("create-vrf", name, err)
	}
	return n.up(name, "create-vrf")
}

func (n *Netlink) CreateVethPair(inName, extName string) error {
	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: inName},
		PeerName:  extName,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		return util.NewKernelError("create-veth", inName, err)
	}
	if err := n.up(inName, "create-veth"); err != nil {
		return err
	}
	return n.up(extName, "create-veth")
}

func (n *Netlink) DeleteLink(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return util.NewKernelError("delete-link", name, err)
	}
	_ = netlink.LinkSetDown(link)
	if err := netlink.LinkDel(link); err != nil {
		return util.NewKernelError("delete-link", name, err)
	}
	return nil
}

func (n *Netlink) AddAddr(ifname, cidr string) error {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return util.NewKernelError("add-addr", ifname, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return util.NewKernelError("add-addr", ifname, err)
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return util.NewKernelError("add-addr", ifname, err)
	}
	return nil
}

func (n *Netlink) DelAddr(ifname, cidr string) error {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return util.NewKernelError("del-addr", ifname, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return util.NewKernelError("del-addr", ifname, err)
	}
	if err := netlink.AddrDel(link, addr); err != nil {
		return util.NewKernelError("del-addr", ifname, err)
	}
	return nil
}

func (n *Netlink) SetMaster(slave, master string) error {
	slaveLink, err := netlink.LinkByName(slave)
	if err != nil {
		return util.NewKernelError("set-master", slave, err)
	}
	masterLink, err := netlink.LinkByName(master)
	if err != nil {
		return util.NewKernelError("set-master", slave, err)
	}
	if err := netlink.LinkSetMaster(slaveLink, masterLink); err != nil {
		return util.NewKernelError("set-master", slave, err)
	}
	return nil
}

func (n *Netlink) ClearMaster(slave string) error {
	link, err := netlink.LinkByName(slave)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return util.NewKernelError("clear-master", slave, err)
	}
	if err := netlink.LinkSetNoMaster(link); err != nil {
		return util.NewKernelError("clear-master", slave, err)
	}
	return nil
}

func (n *Netlink) SetMac(ifname, mac string) error {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return util.NewKernelError("set-mac", ifname, err)
	}
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return util.NewKernelError("set-mac", ifname, err)
	}
	if err := netlink.LinkSetHardwareAddr(link, hw); err != nil {
		return util.NewKernelError("set-mac", ifname, err)
	}
	return nil
}

func (n *Netlink) up(name, op string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return util.NewKernelError(op, name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return util.NewKernelError(op, name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(netlink.LinkNotFoundError)
	return ok
}
