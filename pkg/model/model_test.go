package model

import "testing"

func TestDerivedNames(t *testing.T) {
	vrf := VrfBinding{VrfName: "tenantA", L3VxLANVNI: 10010}
	vlan := VlanBinding{VlanID: 100, L2VxLANVNI: 10100, L3VxLANVNI: 10010}

	if got, want := L3VxlanName(vrf), "vxlan10010"; got != want {
		t.Errorf("L3VxlanName = %q, want %q", got, want)
	}
	if got, want := L3BridgeName(vrf), "br-vsi10010"; got != want {
		t.Errorf("L3BridgeName = %q, want %q", got, want)
	}
	if got, want := L2VxlanName(vlan), "vxlan10100"; got != want {
		t.Errorf("L2VxlanName = %q, want %q", got, want)
	}
	if got, want := L2BridgeName(vlan), "br-vsi10100"; got != want {
		t.Errorf("L2BridgeName = %q, want %q", got, want)
	}
	if got, want := OverlayTapName("eth1", vlan), "eth1.100"; got != want {
		t.Errorf("OverlayTapName = %q, want %q", got, want)
	}
	if got, want := VethInName(vrf), "10010-in"; got != want {
		t.Errorf("VethInName = %q, want %q", got, want)
	}
	if got, want := VethExtName(vrf), "10010-ext"; got != want {
		t.Errorf("VethExtName = %q, want %q", got, want)
	}
}

func TestVrfBindingDefaults(t *testing.T) {
	v := VrfBinding{L3VxLANVNI: 20020}
	if got, want := v.RouteTable(), 20020; got != want {
		t.Errorf("RouteTable() = %d, want %d (default to L3VNI)", got, want)
	}
	if got, want := v.Prefix(), "20020"; got != want {
		t.Errorf("Prefix() = %q, want %q (default to L3VNI string)", got, want)
	}

	explicit := VrfBinding{L3VxLANVNI: 20020, RouteTableID: 500, VethPrefix: "tenantA"}
	if got, want := explicit.RouteTable(), 500; got != want {
		t.Errorf("RouteTable() = %d, want %d", got, want)
	}
	if got, want := explicit.Prefix(), "tenantA"; got != want {
		t.Errorf("Prefix() = %q, want %q", got, want)
	}
}

func TestVrfByL3VNIAmbiguous(t *testing.T) {
	vrfs := []VrfBinding{
		{VrfName: "a", L3VxLANVNI: 100},
		{VrfName: "b", L3VxLANVNI: 100},
	}
	if _, err := VrfByL3VNI(vrfs); err == nil {
		t.Error("expected error for ambiguous L3VNI claimed by two VRFs")
	}
}

func TestVrfByL3VNI(t *testing.T) {
	vrfs := []VrfBinding{
		{VrfName: "a", L3VxLANVNI: 100},
		{VrfName: "b", L3VxLANVNI: 200},
	}
	idx, err := VrfByL3VNI(vrfs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx[100].VrfName != "a" || idx[200].VrfName != "b" {
		t.Errorf("unexpected index contents: %+v", idx)
	}
}
