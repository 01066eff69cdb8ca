package model

import "fmt"

// Kernel object names are deterministic functions of the desired state.
// Keeping the derivation in one place guarantees the reconciler, diff
// engine, and rollback journal agree on what a given binding is called in
// the kernel.

// L2VxlanName returns the name of the L2 VXLAN device for a VLAN binding.
func L2VxlanName(b VlanBinding) string {
	return fmt.Sprintf("vxlan%d", b.L2VxLANVNI)
}

// L3VxlanName returns the name of the L3 VXLAN device for a VRF binding.
func L3VxlanName(b VrfBinding) string {
	return fmt.Sprintf("vxlan%d", b.L3VxLANVNI)
}

// L2BridgeName returns the name of the L2 bridge for a VLAN binding.
func L2BridgeName(b VlanBinding) string {
	return fmt.Sprintf("br-vsi%d", b.L2VxLANVNI)
}

// L3BridgeName returns the name of the L3 bridge for a VRF binding.
func L3BridgeName(b VrfBinding) string {
	return fmt.Sprintf("br-vsi%d", b.L3VxLANVNI)
}

// OverlayTapName returns the name of the dot1q sub-interface on the overlay
// physical interface for a VLAN binding.
func OverlayTapName(overlayIf string, b VlanBinding) string {
	return fmt.Sprintf("%s.%d", overlayIf, b.VlanID)
}

// VethInName returns the name of the inner (VRF-facing) veth leg.
func VethInName(b VrfBinding) string {
	return b.Prefix() + "-in"
}

// VethExtName returns the name of the external veth leg.
func VethExtName(b VrfBinding) string {
	return b.Prefix() + "-ext"
}
