package kernel

import (
	"fmt"
	"net"
	"sort"

	"github.com/vxlanevpn/reconciler/pkg/util"
)

// link records the observable state of one in-memory link: its master
// (enslavement target, if any), the CIDRs assigned to it, its MAC, and,
// for a veth leg, the name of its peer.
type link struct {
	kind   string
	master string
	addrs  map[string]bool
	mac    string
	peer   string
}

// Fake is an in-memory Facade for reconciler tests: no real netlink socket,
// just a map of link name to observed state plus an operation trail.
type Fake struct {
	links      map[string]*link
	Ops        []string
	FailOn     map[string]error
	underlayIP net.IP
}

var _ Facade = (*Fake)(nil)

// NewFake returns an empty Fake, optionally pre-seeded with links already
// "present" in the kernel (to simulate out-of-band objects).
func NewFake(preexisting ...string) *Fake {
	f := &Fake{
		links:      map[string]*link{},
		FailOn:     map[string]error{},
		underlayIP: net.ParseIP("10.255.0.1"),
	}
	for _, name := range preexisting {
		f.links[name] = &link{addrs: map[string]bool{}}
	}
	return f
}

func (f *Fake) failIfSet(op, name string) error {
	if err, ok := f.FailOn[op+":"+name]; ok {
		return err
	}
	return nil
}

func (f *Fake) Lookup(name string) (int, bool, error) {
	_, ok := f.links[name]
	if !ok {
		return 0, false, nil
	}
	return 1, true, nil
}

func (f *Fake) UnderlayIPv4(ifname string) (net.IP, error) {
	if _, ok, _ := f.Lookup(ifname); !ok {
		return nil, util.NewKernelError("lookup", ifname, fmt.Errorf("no such device"))
	}
	return f.underlayIP, nil
}

func (f *Fake) CreateVxlan(name string, vni int, localIP net.IP) error {
	if err := f.failIfSet("create-vxlan", name); err != nil {
		return err
	}
	if _, ok := f.links[name]; ok {
		return util.NewKernelError("create-vxlan", name, fmt.Errorf("file exists"))
	}
	f.links[name] = &link{kind: "vxlan", addrs: map[string]bool{}}
	f.Ops = append(f.Ops, "create-vxlan:"+name)
	return nil
}

func (f *Fake) CreateBridge(name string) error {
	if err := f.failIfSet("create-bridge", name); err != nil {
		return err
	}
	if _, ok := f.links[name]; ok {
		return util.NewKernelError("create-bridge", name, fmt.Errorf("file exists"))
	}
	f.links[name] = &link{kind: "bridge", addrs: map[string]bool{}}
	f.Ops = append(f.Ops, "create-bridge:"+name)
	return nil
}

func (f *Fake) CreateVlan(name, parent string, vlanID int) error {
	if err := f.failIfSet("create-vlan", name); err != nil {
		return err
	}
	if _, ok := f.links[parent]; !ok {
		return util.NewKernelError("create-vlan", name, fmt.Errorf("parent %s not found", parent))
	}
	if _, ok := f.links[name]; ok {
		return util.NewKernelError("create-vlan", name, fmt.Errorf("file exists"))
	}
	f.links[name] = &link{kind: "vlan", addrs: map[string]bool{}}
	f.Ops = append(f.Ops, "create-vlan:"+name)
	return nil
}

func (f *Fake) CreateVrf(name string, tableID int) error {
	if err := f.failIfSet("create-vrf", name); err != nil {
		return err
	}
	if _, ok := f.links[name]; ok {
		return util.NewKernelError("create-vrf", name, fmt.Errorf("file exists"))
	}
	f.links[name] = &link{kind: "vrf", addrs: map[string]bool{}}
	f.Ops = append(f.Ops, "create-vrf:"+name)
	return nil
}

func (f *Fake) CreateVethPair(inName, extName string) error {
	if err := f.failIfSet("create-veth", inName); err != nil {
		return err
	}
	if _, ok := f.links[inName]; ok {
		return util.NewKernelError("create-veth", inName, fmt.Errorf("file exists"))
	}
	f.links[inName] = &link{kind: "veth", peer: extName, addrs: map[string]bool{}}
	f.links[extName] = &link{kind: "veth", peer: inName, addrs: map[string]bool{}}
	f.Ops = append(f.Ops, "create-veth:"+inName)
	return nil
}

func (f *Fake) DeleteLink(name string) error {
	if err := f.failIfSet("delete-link", name); err != nil {
		return err
	}
	l, ok := f.links[name]
	if !ok {
		return nil
	}
	if l.kind == "veth" && l.peer != "" {
		// deleting one leg destroys the peer too
		delete(f.links, l.peer)
	}
	delete(f.links, name)
	f.Ops = append(f.Ops, "delete-link:"+name)
	return nil
}

func (f *Fake) AddAddr(ifname, cidr string) error {
	if err := f.failIfSet("add-addr", ifname); err != nil {
		return err
	}
	l, ok := f.links[ifname]
	if !ok {
		return util.NewKernelError("add-addr", ifname, fmt.Errorf("no such device"))
	}
	l.addrs[cidr] = true
	f.Ops = append(f.Ops, "add-addr:"+ifname+":"+cidr)
	return nil
}

func (f *Fake) DelAddr(ifname, cidr string) error {
	if err := f.failIfSet("del-addr", ifname); err != nil {
		return err
	}
	l, ok := f.links[ifname]
	if !ok {
		return nil
	}
	delete(l.addrs, cidr)
	f.Ops = append(f.Ops, "del-addr:"+ifname+":"+cidr)
	return nil
}

func (f *Fake) SetMaster(slave, master string) error {
	if err := f.failIfSet("set-master", slave); err != nil {
		return err
	}
	l, ok := f.links[slave]
	if !ok {
		return util.NewKernelError("set-master", slave, fmt.Errorf("no such device"))
	}
	if _, ok := f.links[master]; !ok {
		return util.NewKernelError("set-master", slave, fmt.Errorf("master %s not found", master))
	}
	l.master = master
	f.Ops = append(f.Ops, "set-master:"+slave+"->"+master)
	return nil
}

func (f *Fake) ClearMaster(slave string) error {
	if err := f.failIfSet("clear-master", slave); err != nil {
		return err
	}
	l, ok := f.links[slave]
	if !ok {
		return nil
	}
	l.master = ""
	f.Ops = append(f.Ops, "clear-master:"+slave)
	return nil
}

func (f *Fake) SetMac(ifname, mac string) error {
	if err := f.failIfSet("set-mac", ifname); err != nil {
		return err
	}
	l, ok := f.links[ifname]
	if !ok {
		return util.NewKernelError("set-mac", ifname, fmt.Errorf("no such device"))
	}
	l.mac = mac
	f.Ops = append(f.Ops, "set-mac:"+ifname+":"+mac)
	return nil
}

// Exists reports whether a link with the given name is currently present.
func (f *Fake) Exists(name string) bool {
	_, ok := f.links[name]
	return ok
}

// Master returns the current master of a link, or "" if none/absent.
func (f *Fake) Master(name string) string {
	l, ok := f.links[name]
	if !ok {
		return ""
	}
	return l.master
}

// Addrs returns the sorted set of CIDRs assigned to a link.
func (f *Fake) Addrs(name string) []string {
	l, ok := f.links[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l.addrs))
	for a := range l.addrs {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Mac returns the MAC address configured on a link, or "" if none.
func (f *Fake) Mac(name string) string {
	l, ok := f.links[name]
	if !ok {
		return ""
	}
	return l.mac
}

// LinkNames returns the sorted set of all currently-present link names.
func (f *Fake) LinkNames() []string {
	out := make([]string, 0, len(f.links))
	for name := range f.links {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
