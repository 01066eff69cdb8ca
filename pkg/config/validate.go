package config

import (
	"github.com/vxlanevpn/reconciler/pkg/model"
	"github.com/vxlanevpn/reconciler/pkg/util"
)

// validator accumulates ConfigInvalid messages while walking a desired
// state document, mirroring the style of util.ValidationBuilder but
// specialized to the field names this package's callers care about.
type validator struct {
	b util.ValidationBuilder
}

func (v *validator) require(cond bool, msg string) {
	v.b.Add(cond, msg)
}

func (v *validator) checkMode(m model.Mode) {
	switch m {
	case model.ModeCentral, model.ModeDistributeAsymmetric:
		v.b.AddErrorf("Mode %q is not implemented", m)
	case model.ModeDistributeSymmetric:
	default:
		v.b.AddErrorf("Mode %q is not a recognized mode", m)
	}
}

func (v *validator) checkVlan(vb model.VlanBinding, seen map[int]bool) {
	if seen[vb.VlanID] {
		v.b.AddErrorf("duplicate VlanID %d", vb.VlanID)
	}
	seen[vb.VlanID] = true

	if err := util.ValidateVLANID(vb.VlanID); err != nil {
		v.b.AddErrorf("VlanID %d: %v", vb.VlanID, err)
	}
	if err := util.ValidateVNI(vb.L2VxLANVNI); err != nil {
		v.b.AddErrorf("VLAN %d: L2VxLANVNI: %v", vb.VlanID, err)
	}
	if err := util.ValidateVNI(vb.L3VxLANVNI); err != nil {
		v.b.AddErrorf("VLAN %d: L3VxLANVNI: %v", vb.VlanID, err)
	}
	if err := util.ValidateCIDR(vb.L2IPAddr); err != nil {
		v.b.AddErrorf("VLAN %d: L2VxLANVNIIPAddr: %v", vb.VlanID, err)
	}
	if err := util.ValidateMAC(vb.L2MacAddr); err != nil {
		v.b.AddErrorf("VLAN %d: L2VxLANVNIMacAddr: %v", vb.VlanID, err)
	}
}

func (v *validator) checkVrf(rb model.VrfBinding, seen map[string]bool) {
	if seen[rb.VrfName] {
		v.b.AddErrorf("duplicate VRFName %q", rb.VrfName)
	}
	seen[rb.VrfName] = true

	v.b.Add(rb.VrfName != "", "VRFName must not be empty")
	if err := util.ValidateVNI(rb.L3VxLANVNI); err != nil {
		v.b.AddErrorf("VRF %s: VxLANL3VNI: %v", rb.VrfName, err)
	}
	if !rb.VethRequired {
		return
	}
	if rb.InVethCIDR == "" || rb.ExtVethCIDR == "" {
		v.b.AddErrorf("VRF %s: InOutVethRequire is true but veth CIDRs are unset", rb.VrfName)
		return
	}
	if err := util.ValidateCIDR(rb.InVethCIDR); err != nil {
		v.b.AddErrorf("VRF %s: InVRFVethIPAddr: %v", rb.VrfName, err)
	}
	if err := util.ValidateCIDR(rb.ExtVethCIDR); err != nil {
		v.b.AddErrorf("VRF %s: ExternalVRFVethIPAddr: %v", rb.VrfName, err)
	}
}

func (v *validator) build() error {
	return v.b.Build()
}
