// Package reconcile drives the live kernel datapath toward a desired VXLAN
// BGP-EVPN state, either by full linear construction (no prior state) or by
// a diff-driven incremental apply against the last successfully applied
// state. Every forward mutation is journaled; any failure triggers a
// strict-reverse rollback of everything this attempt applied.
package reconcile

import (
	"fmt"
	"net"

	"github.com/vxlanevpn/reconciler/internal/diff"
	"github.com/vxlanevpn/reconciler/internal/journal"
	"github.com/vxlanevpn/reconciler/internal/kernel"
	"github.com/vxlanevpn/reconciler/pkg/model"
	"github.com/vxlanevpn/reconciler/pkg/util"
)

// Reconciler holds the facade used for one reconciliation attempt. It is
// not reused across attempts; the journal it builds is process-local and
// scoped to a single Apply call.
type Reconciler struct {
	Facade kernel.Facade
}

// New returns a Reconciler bound to the given facade.
func New(f kernel.Facade) *Reconciler {
	return &Reconciler{Facade: f}
}

// Outcome summarizes one reconciliation attempt, independent of success or
// failure, for the audit trail and the state store.
type Outcome struct {
	Mode         model.Mode
	Initial      bool
	RolledBack   bool
	VlansAdded   int
	VlansRemoved int
	VlansChanged int
	VrfsAdded    int
	VrfsRemoved  int
	VrfsChanged  int
	Journal      []journal.Entry
}

// Apply reconciles the live kernel datapath toward desired. prior is the
// last successfully applied desired state; nil forces a full initial apply.
//
// The journal and its rollback live entirely inside this call: a deferred
// recover guarantees that an uncaught panic during either apply path still
// unwinds whatever this attempt already mutated, exactly like an ordinary
// returned error would.
func (r *Reconciler) Apply(desired model.DesiredState, prior *model.DesiredState) (out Outcome, err error) {
	out = Outcome{Mode: desired.Mode, Initial: prior == nil}

	vrfByL3, err := model.VrfByL3VNI(desired.VrfBindings)
	if err != nil {
		return out, util.NewConfigError("VRFMapL3VNIList", err.Error())
	}
	for _, v := range desired.VlanBindings {
		if _, ok := vrfByL3[v.L3VxLANVNI]; !ok {
			return out, util.NewPreconditionError("apply", fmt.Sprintf("VLAN %d", v.VlanID),
				"VLAN references unknown L3VNI", fmt.Sprintf("L3VNI %d has no matching VRF binding", v.L3VxLANVNI))
		}
	}

	if _, ok, lerr := r.Facade.Lookup(desired.UnderlayIf); lerr != nil {
		return out, lerr
	} else if !ok {
		return out, util.NewPreconditionError("apply", desired.UnderlayIf, "underlay interface must exist", "")
	}
	if _, ok, lerr := r.Facade.Lookup(desired.OverlayIf); lerr != nil {
		return out, lerr
	} else if !ok {
		return out, util.NewPreconditionError("apply", desired.OverlayIf, "overlay interface must exist", "")
	}
	underlayIP, err := r.Facade.UnderlayIPv4(desired.UnderlayIf)
	if err != nil {
		return out, err
	}
	if underlayIP == nil {
		return out, util.NewPreconditionError("apply", desired.UnderlayIf, "underlay must have an IPv4 address", "")
	}

	j := journal.New()
	defer func() {
		out.Journal = j.Entries()
		if p := recover(); p != nil {
			util.WithField("panic", fmt.Sprintf("%v", p)).Warn("reconciliation panicked, rolling back")
			if rerr := j.Undo(r.Facade); rerr != nil {
				util.WithField("error", rerr.Error()).Warn("rollback completed with errors")
			}
			out.RolledBack = true
			err = util.NewPreconditionError("apply", "", "panic during apply", fmt.Sprintf("%v", p))
			return
		}
		if err != nil {
			util.WithField("error", err.Error()).Warn("reconciliation failed, rolling back")
			if rerr := j.Undo(r.Facade); rerr != nil {
				util.WithField("error", rerr.Error()).Warn("rollback completed with errors")
			}
			out.RolledBack = true
		}
	}()

	if prior == nil {
		err = r.applyInitial(j, desired, vrfByL3, underlayIP)
	} else {
		err = r.applyIncremental(j, *prior, desired, vrfByL3, underlayIP, &out)
	}
	return out, err
}

func (r *Reconciler) applyInitial(j *journal.Journal, desired model.DesiredState, vrfByL3 map[int]model.VrfBinding, underlayIP net.IP) error {
	for _, vrf := range desired.VrfBindings {
		if err := r.createVrfSubtree(j, vrf, underlayIP); err != nil {
			return err
		}
	}
	for _, vlan := range desired.VlanBindings {
		vrf := vrfByL3[vlan.L3VxLANVNI]
		if err := r.createVlanSubtree(j, vlan, desired.OverlayIf, vrf.VrfName, underlayIP); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) applyIncremental(j *journal.Journal, prior, desired model.DesiredState, vrfByL3 map[int]model.VrfBinding, underlayIP net.IP, out *Outcome) error {
	vrfDiff := diff.Vrfs(prior.VrfBindings, desired.VrfBindings)
	vlanDiff := diff.Vlans(prior.VlanBindings, desired.VlanBindings)
	out.VrfsAdded, out.VrfsRemoved, out.VrfsChanged = len(vrfDiff.Added), len(vrfDiff.Removed), len(vrfDiff.Changed)
	out.VlansAdded, out.VlansRemoved, out.VlansChanged = len(vlanDiff.Added), len(vlanDiff.Removed), len(vlanDiff.Changed)

	oldVlanByID := model.VlanByID(prior.VlanBindings)
	oldVrfByL3, err := model.VrfByL3VNI(prior.VrfBindings)
	if err != nil {
		return err
	}

	for _, vrf := range vrfDiff.Removed {
		if err := r.removeVrfSubtree(j, vrf); err != nil {
			return err
		}
	}
	for _, change := range vrfDiff.Changed {
		if err := r.applyVrfChanged(j, change, desired, underlayIP); err != nil {
			return err
		}
	}
	for _, vrf := range vrfDiff.Added {
		if err := r.createVrfSubtree(j, vrf, underlayIP); err != nil {
			return err
		}
	}

	for _, vlan := range vlanDiff.Removed {
		if err := r.removeVlanSubtree(j, vlan, desired.OverlayIf, oldVrfByL3[vlan.L3VxLANVNI].VrfName); err != nil {
			return err
		}
	}
	for _, vlan := range vlanDiff.Added {
		vrf := vrfByL3[vlan.L3VxLANVNI]
		if err := r.createVlanSubtree(j, vlan, desired.OverlayIf, vrf.VrfName, underlayIP); err != nil {
			return err
		}
	}
	for _, vlan := range vlanDiff.Changed {
		old, existed := oldVlanByID[vlan.VlanID]
		if existed {
			if err := r.removeVlanSubtree(j, old, desired.OverlayIf, oldVrfByL3[old.L3VxLANVNI].VrfName); err != nil {
				return err
			}
		}
		vrf := vrfByL3[vlan.L3VxLANVNI]
		if err := r.createVlanSubtree(j, vlan, desired.OverlayIf, vrf.VrfName, underlayIP); err != nil {
			return err
		}
	}
	return nil
}

// applyVrfChanged rebuilds the subtrees selected by the field-level diff.
// VrfName/RouteTableID changes recreate the VRF device and re-enslave
// everything that pointed at it; an L3VNI change recreates the L3 VXLAN and
// bridge; a VethRequired (or dependent-field) change re-runs the veth
// reconciliation sub-protocol.
func (r *Reconciler) applyVrfChanged(j *journal.Journal, change diff.VrfChange, desired model.DesiredState, underlayIP net.IP) error {
	_, nameChanged := change.ChangedFields["VrfName"]
	_, tableChanged := change.ChangedFields["RouteTableID"]
	_, l3vniChanged := change.ChangedFields["L3VxLANVNI"]
	_, vethReqChanged := change.ChangedFields["VethRequired"]
	_, inCidrChanged := change.ChangedFields["InVethCIDR"]
	_, extCidrChanged := change.ChangedFields["ExtVethCIDR"]
	_, vethPrefixChanged := change.ChangedFields["VethPrefix"]

	if nameChanged || tableChanged {
		if err := r.Facade.DeleteLink(change.Old.VrfName); err != nil {
			return err
		}
		if err := r.Facade.CreateVrf(change.New.VrfName, change.New.RouteTable()); err != nil {
			return err
		}
		j.RecordVrf(change.New.VrfName)

		l3br := model.L3BridgeName(change.New)
		if err := r.Facade.SetMaster(l3br, change.New.VrfName); err != nil {
			return err
		}
		j.RecordMaster(l3br, change.New.VrfName)

		for _, vlan := range desired.VlanBindings {
			if vlan.L3VxLANVNI != change.New.L3VxLANVNI {
				continue
			}
			l2br := model.L2BridgeName(vlan)
			if err := r.Facade.SetMaster(l2br, change.New.VrfName); err != nil {
				return err
			}
			j.RecordMaster(l2br, change.New.VrfName)
		}

		// Recreating the VRF device drops the inner veth leg's enslavement
		// too. If VethRequired itself isn't changing, the branch below
		// never runs to rebuild it, so re-enslave it here.
		if change.New.VethRequired && !vethReqChanged {
			inName := model.VethInName(change.New)
			if err := r.Facade.SetMaster(inName, change.New.VrfName); err != nil {
				return err
			}
			j.RecordMaster(inName, change.New.VrfName)
		}
	}

	if l3vniChanged {
		oldL3br := model.L3BridgeName(change.Old)
		if err := r.Facade.ClearMaster(oldL3br); err != nil {
			return err
		}
		if err := r.Facade.DeleteLink(oldL3br); err != nil {
			return err
		}
		if err := r.Facade.DeleteLink(model.L3VxlanName(change.Old)); err != nil {
			return err
		}

		l3vx := model.L3VxlanName(change.New)
		if err := r.Facade.CreateVxlan(l3vx, change.New.L3VxLANVNI, underlayIP); err != nil {
			return err
		}
		j.RecordIface(l3vx)

		l3br := model.L3BridgeName(change.New)
		if err := r.Facade.CreateBridge(l3br); err != nil {
			return err
		}
		j.RecordBridge(l3br)

		if err := r.Facade.SetMaster(l3vx, l3br); err != nil {
			return err
		}
		j.RecordMaster(l3vx, l3br)

		if err := r.Facade.SetMaster(l3br, change.New.VrfName); err != nil {
			return err
		}
		j.RecordMaster(l3br, change.New.VrfName)
	}

	if vethReqChanged || (change.New.VethRequired && (inCidrChanged || extCidrChanged || vethPrefixChanged)) {
		if err := r.reconcileVeth(j, change.New, change.New.VethRequired); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reconciler) createVrfSubtree(j *journal.Journal, vrf model.VrfBinding, underlayIP net.IP) error {
	if err := r.Facade.CreateVrf(vrf.VrfName, vrf.RouteTable()); err != nil {
		return err
	}
	j.RecordVrf(vrf.VrfName)

	l3vx := model.L3VxlanName(vrf)
	if err := r.Facade.CreateVxlan(l3vx, vrf.L3VxLANVNI, underlayIP); err != nil {
		return err
	}
	j.RecordIface(l3vx)

	l3br := model.L3BridgeName(vrf)
	if err := r.Facade.CreateBridge(l3br); err != nil {
		return err
	}
	j.RecordBridge(l3br)

	if err := r.Facade.SetMaster(l3vx, l3br); err != nil {
		return err
	}
	j.RecordMaster(l3vx, l3br)

	if err := r.Facade.SetMaster(l3br, vrf.VrfName); err != nil {
		return err
	}
	j.RecordMaster(l3br, vrf.VrfName)

	if vrf.VethRequired {
		if err := r.reconcileVeth(j, vrf, true); err != nil {
			return err
		}
	}
	return nil
}

// reconcileVeth implements the sub-protocol from the spec: tear down any
// existing inner leg (which removes its peer too), then, if required,
// rebuild the pair from scratch. This makes the veth subtree idempotent
// with respect to the boolean and the CIDRs without per-field diffing.
func (r *Reconciler) reconcileVeth(j *journal.Journal, vrf model.VrfBinding, required bool) error {
	inName := model.VethInName(vrf)
	if idx, ok, err := r.Facade.Lookup(inName); err != nil {
		return err
	} else if ok && idx != 0 {
		if err := r.Facade.DeleteLink(inName); err != nil {
			return err
		}
	}

	if !required {
		return nil
	}

	extName := model.VethExtName(vrf)
	if err := r.Facade.CreateVethPair(inName, extName); err != nil {
		return err
	}
	j.RecordVeth(inName)

	if err := r.Facade.AddAddr(inName, vrf.InVethCIDR); err != nil {
		return err
	}
	j.RecordAddr(inName, vrf.InVethCIDR)

	if err := r.Facade.AddAddr(extName, vrf.ExtVethCIDR); err != nil {
		return err
	}
	j.RecordAddr(extName, vrf.ExtVethCIDR)

	if err := r.Facade.SetMaster(inName, vrf.VrfName); err != nil {
		return err
	}
	j.RecordMaster(inName, vrf.VrfName)
	return nil
}

func (r *Reconciler) createVlanSubtree(j *journal.Journal, vlan model.VlanBinding, overlayIf, vrfName string, underlayIP net.IP) error {
	l2vx := model.L2VxlanName(vlan)
	if err := r.Facade.CreateVxlan(l2vx, vlan.L2VxLANVNI, underlayIP); err != nil {
		return err
	}
	j.RecordIface(l2vx)

	tap := model.OverlayTapName(overlayIf, vlan)
	if err := r.Facade.CreateVlan(tap, overlayIf, vlan.VlanID); err != nil {
		return err
	}
	j.RecordIface(tap)

	l2br := model.L2BridgeName(vlan)
	if err := r.Facade.CreateBridge(l2br); err != nil {
		return err
	}
	j.RecordBridge(l2br)

	if err := r.Facade.SetMac(l2br, vlan.L2MacAddr); err != nil {
		return err
	}

	if err := r.Facade.AddAddr(l2br, vlan.L2IPAddr); err != nil {
		return err
	}
	j.RecordAddr(l2br, vlan.L2IPAddr)

	if err := r.Facade.SetMaster(l2vx, l2br); err != nil {
		return err
	}
	j.RecordMaster(l2vx, l2br)

	if err := r.Facade.SetMaster(tap, l2br); err != nil {
		return err
	}
	j.RecordMaster(tap, l2br)

	if err := r.Facade.SetMaster(l2br, vrfName); err != nil {
		return err
	}
	j.RecordMaster(l2br, vrfName)
	return nil
}

// removeVrfSubtree tears down a VRF's L3 subtree and veth leg. Each
// destructive step is journaled as a terminal removal entry: there is
// nothing to undo if a later step in the same apply fails, but the audit
// trail still needs a record of what was torn down.
func (r *Reconciler) removeVrfSubtree(j *journal.Journal, vrf model.VrfBinding) error {
	if vrf.VethRequired {
		inName := model.VethInName(vrf)
		if err := r.Facade.DeleteLink(inName); err != nil {
			return err
		}
		j.RecordVethRemoved(inName)
	}
	l3br := model.L3BridgeName(vrf)
	if err := r.Facade.ClearMaster(l3br); err != nil {
		return err
	}
	j.RecordMasterCleared(l3br, vrf.VrfName)

	if err := r.Facade.DeleteLink(l3br); err != nil {
		return err
	}
	j.RecordBridgeRemoved(l3br)

	l3vx := model.L3VxlanName(vrf)
	if err := r.Facade.DeleteLink(l3vx); err != nil {
		return err
	}
	j.RecordIfaceRemoved(l3vx)

	if err := r.Facade.DeleteLink(vrf.VrfName); err != nil {
		return err
	}
	j.RecordVrfRemoved(vrf.VrfName)
	return nil
}

// removeVlanSubtree tears down a VLAN's L2 subtree. vrfName is the VRF the
// L2 bridge was enslaved to, recorded purely for the audit trail since the
// facade has no way to query a link's current master.
func (r *Reconciler) removeVlanSubtree(j *journal.Journal, vlan model.VlanBinding, overlayIf, vrfName string) error {
	l2br := model.L2BridgeName(vlan)
	if err := r.Facade.ClearMaster(l2br); err != nil {
		return err
	}
	j.RecordMasterCleared(l2br, vrfName)

	if err := r.Facade.DelAddr(l2br, vlan.L2IPAddr); err != nil {
		return err
	}
	j.RecordAddrUnassigned(l2br, vlan.L2IPAddr)

	if err := r.Facade.DeleteLink(l2br); err != nil {
		return err
	}
	j.RecordBridgeRemoved(l2br)

	l2vx := model.L2VxlanName(vlan)
	if err := r.Facade.DeleteLink(l2vx); err != nil {
		return err
	}
	j.RecordIfaceRemoved(l2vx)

	tap := model.OverlayTapName(overlayIf, vlan)
	if err := r.Facade.DeleteLink(tap); err != nil {
		return err
	}
	j.RecordIfaceRemoved(tap)
	return nil
}
