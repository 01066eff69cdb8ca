// Package model defines the desired-state document for the VXLAN/BGP-EVPN
// datapath and the deterministic derivation of kernel object names from it.
package model

import "fmt"

// Mode selects the EVPN control-plane variant the desired state was produced
// for. Only ModeDistributeSymmetric is implemented; the others are accepted
// in the wire format but rejected by validation.
type Mode string

const (
	ModeCentral              Mode = "central"
	ModeDistributeAsymmetric Mode = "distribute-asymmetric"
	ModeDistributeSymmetric  Mode = "distribute-symmetric"
)

// VlanBinding maps a VLAN to its L2 VNI and, transitively through L3VNI, to
// a VRF. Keyed by VlanID within a DesiredState.
type VlanBinding struct {
	VlanID      int    `json:"VlanID"`
	L2VxLANVNI  int    `json:"L2VxLANVNI"`
	L2IPAddr    string `json:"L2VxLANVNIIPAddr"`
	L2MacAddr   string `json:"L2VxLANVNIMacAddr"`
	L3VxLANVNI  int    `json:"L3VxLANVNI"`
}

// VrfBinding maps a VRF to its L3 VNI, routing table, and optional
// inter-VRF veth pair. Keyed by VrfName within a DesiredState.
type VrfBinding struct {
	VrfName         string `json:"VRFName"`
	L3VxLANVNI      int    `json:"VxLANL3VNI"`
	RouteTableID    int    `json:"VRFRouteTableID"`
	VethPrefix      string `json:"VxLANInOutDomainVethPrefix"`
	VethRequired    bool   `json:"InOutVethRequire"`
	InVethCIDR      string `json:"InVRFVethIPAddr"`
	ExtVethCIDR     string `json:"ExternalVRFVethIPAddr"`
}

// DesiredState is the top-level declarative document driving reconciliation.
type DesiredState struct {
	Mode         Mode          `json:"Mode"`
	UnderlayIf   string        `json:"UnderlayIf"`
	OverlayIf    string        `json:"OverlayIf"`
	VlanBindings []VlanBinding `json:"VlanMapVNIList"`
	VrfBindings  []VrfBinding  `json:"VRFMapL3VNIList"`
}

// RouteTable returns the binding's table ID, defaulting to the L3VNI when
// unset (table ID 0 is not a valid kernel routing table).
func (v VrfBinding) RouteTable() int {
	if v.RouteTableID != 0 {
		return v.RouteTableID
	}
	return v.L3VxLANVNI
}

// Prefix returns the veth name prefix, defaulting to the L3VNI rendered as
// a string.
func (v VrfBinding) Prefix() string {
	if v.VethPrefix != "" {
		return v.VethPrefix
	}
	return fmt.Sprintf("%d", v.L3VxLANVNI)
}

// VrfByL3VNI indexes the VRF bindings by L3VNI for VLAN-to-VRF lookups.
// Returns an error if more than one VRF binding shares the same L3VNI.
func VrfByL3VNI(vrfs []VrfBinding) (map[int]VrfBinding, error) {
	idx := make(map[int]VrfBinding, len(vrfs))
	for _, v := range vrfs {
		if _, dup := idx[v.L3VxLANVNI]; dup {
			return nil, fmt.Errorf("model: ambiguous L3VNI %d claimed by multiple VRF bindings", v.L3VxLANVNI)
		}
		idx[v.L3VxLANVNI] = v
	}
	return idx, nil
}

// VrfByName indexes the VRF bindings by name.
func VrfByName(vrfs []VrfBinding) map[string]VrfBinding {
	idx := make(map[string]VrfBinding, len(vrfs))
	for _, v := range vrfs {
		idx[v.VrfName] = v
	}
	return idx
}

// VlanByID indexes the VLAN bindings by VlanID.
func VlanByID(vlans []VlanBinding) map[int]VlanBinding {
	idx := make(map[int]VlanBinding, len(vlans))
	for _, v := range vlans {
		idx[v.VlanID] = v
	}
	return idx
}
