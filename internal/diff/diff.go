// Package diff partitions old and new desired-state documents into
// added/removed/changed sets. Pure functions, no I/O, no kernel access.
package diff

import (
	"github.com/vxlanevpn/reconciler/pkg/model"
)

// VlanResult partitions a VLAN binding comparison.
type VlanResult struct {
	Added   []model.VlanBinding
	Removed []model.VlanBinding
	Changed []model.VlanBinding
}

// VrfChange carries a changed VRF binding plus the per-field diff that
// drives which subtree the reconciler rebuilds.
type VrfChange struct {
	Old           model.VrfBinding
	New           model.VrfBinding
	ChangedFields map[string][2]interface{}
}

// VrfResult partitions a VRF binding comparison.
type VrfResult struct {
	Added   []model.VrfBinding
	Removed []model.VrfBinding
	Changed []VrfChange
}

// Vlans compares old and new VLAN bindings by VlanID. Output order is
// stable: added/changed follow new's order, removed follows old's order.
func Vlans(oldBindings, newBindings []model.VlanBinding) VlanResult {
	oldByID := make(map[int]model.VlanBinding, len(oldBindings))
	for _, v := range oldBindings {
		oldByID[v.VlanID] = v
	}
	newByID := make(map[int]model.VlanBinding, len(newBindings))
	for _, v := range newBindings {
		newByID[v.VlanID] = v
	}

	var result VlanResult
	for _, v := range newBindings {
		old, existed := oldByID[v.VlanID]
		if !existed {
			result.Added = append(result.Added, v)
			continue
		}
		if old != v {
			result.Changed = append(result.Changed, v)
		}
	}
	for _, v := range oldBindings {
		if _, stillPresent := newByID[v.VlanID]; !stillPresent {
			result.Removed = append(result.Removed, v)
		}
	}
	return result
}

// Vrfs compares old and new VRF bindings by VrfName, producing a
// field-level change map for the changed set.
func Vrfs(oldBindings, newBindings []model.VrfBinding) VrfResult {
	oldByName := make(map[string]model.VrfBinding, len(oldBindings))
	for _, v := range oldBindings {
		oldByName[v.VrfName] = v
	}
	newByName := make(map[string]model.VrfBinding, len(newBindings))
	for _, v := range newBindings {
		newByName[v.VrfName] = v
	}

	var result VrfResult
	for _, v := range newBindings {
		old, existed := oldByName[v.VrfName]
		if !existed {
			result.Added = append(result.Added, v)
			continue
		}
		if old != v {
			result.Changed = append(result.Changed, VrfChange{
				Old:           old,
				New:           v,
				ChangedFields: vrfFieldDiff(old, v),
			})
		}
	}
	for _, v := range oldBindings {
		if _, stillPresent := newByName[v.VrfName]; !stillPresent {
			result.Removed = append(result.Removed, v)
		}
	}
	return pairRenames(result)
}

// pairRenames reinterprets a Removed+Added pair that share an L3VNI as a
// single Changed entry carrying a VrfName field change, rather than two
// independent operations. model.VrfByL3VNI requires L3VNI to be unique
// within a document, so this pairing is unambiguous. Without it a rename
// is indistinguishable from an unrelated delete-and-create, and the
// reconciler has no Changed entry to trigger re-enslavement of whatever
// was pointed at the old VRF.
func pairRenames(result VrfResult) VrfResult {
	removedByL3VNI := make(map[int]model.VrfBinding, len(result.Removed))
	for _, v := range result.Removed {
		removedByL3VNI[v.L3VxLANVNI] = v
	}

	consumed := make(map[int]bool, len(result.Added))
	var stillAdded []model.VrfBinding
	for _, v := range result.Added {
		old, matched := removedByL3VNI[v.L3VxLANVNI]
		if !matched {
			stillAdded = append(stillAdded, v)
			continue
		}
		result.Changed = append(result.Changed, VrfChange{
			Old:           old,
			New:           v,
			ChangedFields: vrfFieldDiff(old, v),
		})
		consumed[v.L3VxLANVNI] = true
	}

	var stillRemoved []model.VrfBinding
	for _, v := range result.Removed {
		if !consumed[v.L3VxLANVNI] {
			stillRemoved = append(stillRemoved, v)
		}
	}

	result.Added = stillAdded
	result.Removed = stillRemoved
	return result
}

func vrfFieldDiff(old, new model.VrfBinding) map[string][2]interface{} {
	fields := map[string][2]interface{}{}
	add := func(name string, o, n interface{}) {
		if o != n {
			fields[name] = [2]interface{}{o, n}
		}
	}
	add("VrfName", old.VrfName, new.VrfName)
	add("L3VxLANVNI", old.L3VxLANVNI, new.L3VxLANVNI)
	add("RouteTableID", old.RouteTableID, new.RouteTableID)
	add("VethPrefix", old.VethPrefix, new.VethPrefix)
	add("VethRequired", old.VethRequired, new.VethRequired)
	add("InVethCIDR", old.InVethCIDR, new.InVethCIDR)
	add("ExtVethCIDR", old.ExtVethCIDR, new.ExtVethCIDR)
	return fields
}
