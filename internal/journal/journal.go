// Package journal records forward kernel mutations made during one
// reconciliation attempt and undoes them, in strict reverse order, on
// failure.
package journal

import (
	"errors"
	"fmt"

	"github.com/vxlanevpn/reconciler/internal/kernel"
	"github.com/vxlanevpn/reconciler/pkg/util"
)

// Kind tags the shape of one journal entry.
type Kind int

const (
	IfaceCreated Kind = iota
	BridgeCreated
	VrfCreated
	VethCreated
	AddrAssigned
	MasterSet

	// Removal kinds record destructive incremental-apply steps for the
	// audit trail. They are terminal: there is no inverse to run on
	// rollback, since the object they describe is already gone.
	IfaceRemoved
	BridgeRemoved
	VrfRemoved
	VethRemoved
	AddrUnassigned
	MasterCleared
)

func (k Kind) String() string {
	switch k {
	case IfaceCreated:
		return "IfaceCreated"
	case BridgeCreated:
		return "BridgeCreated"
	case VrfCreated:
		return "VrfCreated"
	case VethCreated:
		return "VethCreated"
	case AddrAssigned:
		return "AddrAssigned"
	case MasterSet:
		return "MasterSet"
	case IfaceRemoved:
		return "IfaceRemoved"
	case BridgeRemoved:
		return "BridgeRemoved"
	case VrfRemoved:
		return "VrfRemoved"
	case VethRemoved:
		return "VethRemoved"
	case AddrUnassigned:
		return "AddrUnassigned"
	case MasterCleared:
		return "MasterCleared"
	default:
		return "Unknown"
	}
}

// Action classifies a kind for the persisted state record: every kind is
// either a forward mutation ("add") or a destructive removal ("del").
func (k Kind) Action() string {
	switch k {
	case IfaceRemoved, BridgeRemoved, VrfRemoved, VethRemoved, AddrUnassigned, MasterCleared:
		return "del"
	default:
		return "add"
	}
}

// Terminal reports whether an entry of this kind has no inverse to run on
// rollback, because the object it describes has already been removed.
func (k Kind) Terminal() bool {
	return k.Action() == "del"
}

// Entry is one recorded mutation. Name is always populated; CIDR is
// populated only for AddrAssigned and AddrUnassigned entries, and Master
// only for MasterSet and MasterCleared entries.
type Entry struct {
	Kind   Kind
	Name   string
	CIDR   string
	Master string
}

func (e Entry) String() string {
	switch e.Kind {
	case AddrAssigned, AddrUnassigned:
		return fmt.Sprintf("%s(%s, %s)", e.Kind, e.Name, e.CIDR)
	case MasterSet, MasterCleared:
		return fmt.Sprintf("%s(%s, %s)", e.Kind, e.Name, e.Master)
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Name)
	}
}

// Journal is an append-only, process-local log scoped to one reconciliation
// attempt. It is never shared and never persisted directly; the state
// store serializes a snapshot of it on completion.
type Journal struct {
	entries []Entry
}

// New returns an empty Journal.
func New() *Journal {
	return &Journal{}
}

// Entries returns the recorded entries in insertion order.
func (j *Journal) Entries() []Entry {
	return append([]Entry(nil), j.entries...)
}

func (j *Journal) RecordIface(name string)  { j.entries = append(j.entries, Entry{Kind: IfaceCreated, Name: name}) }
func (j *Journal) RecordBridge(name string) { j.entries = append(j.entries, Entry{Kind: BridgeCreated, Name: name}) }
func (j *Journal) RecordVrf(name string)    { j.entries = append(j.entries, Entry{Kind: VrfCreated, Name: name}) }

// RecordVeth records only the inner leg: deleting it removes the kernel
// peer automatically, so recording the external leg too would attempt a
// duplicate, already-satisfied undo.
func (j *Journal) RecordVeth(innerName string) {
	j.entries = append(j.entries, Entry{Kind: VethCreated, Name: innerName})
}

func (j *Journal) RecordAddr(ifname, cidr string) {
	j.entries = append(j.entries, Entry{Kind: AddrAssigned, Name: ifname, CIDR: cidr})
}

func (j *Journal) RecordMaster(slave, master string) {
	j.entries = append(j.entries, Entry{Kind: MasterSet, Name: slave, Master: master})
}

// RecordIfaceRemoved, RecordBridgeRemoved, RecordVrfRemoved, RecordVethRemoved,
// RecordAddrUnassigned and RecordMasterCleared log a destructive incremental
// step for the audit trail. Unlike their *Created/*Set counterparts they are
// never undone: the object is already gone by the time they're recorded.
func (j *Journal) RecordIfaceRemoved(name string) {
	j.entries = append(j.entries, Entry{Kind: IfaceRemoved, Name: name})
}

func (j *Journal) RecordBridgeRemoved(name string) {
	j.entries = append(j.entries, Entry{Kind: BridgeRemoved, Name: name})
}

func (j *Journal) RecordVrfRemoved(name string) {
	j.entries = append(j.entries, Entry{Kind: VrfRemoved, Name: name})
}

// RecordVethRemoved mirrors RecordVeth: only the inner leg is logged since
// deleting it takes the peer down with it.
func (j *Journal) RecordVethRemoved(innerName string) {
	j.entries = append(j.entries, Entry{Kind: VethRemoved, Name: innerName})
}

func (j *Journal) RecordAddrUnassigned(ifname, cidr string) {
	j.entries = append(j.entries, Entry{Kind: AddrUnassigned, Name: ifname, CIDR: cidr})
}

func (j *Journal) RecordMasterCleared(slave, formerMaster string) {
	j.entries = append(j.entries, Entry{Kind: MasterCleared, Name: slave, Master: formerMaster})
}

// Undo walks entries in strict reverse insertion order and applies the
// inverse facade operation for each. Individual failures are collected
// and reported but never stop the walk: rollback is best-effort.
func (j *Journal) Undo(f kernel.Facade) error {
	var errs []error
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if e.Kind.Terminal() {
			continue
		}
		if err := undoOne(f, e); err != nil {
			rerr := util.NewRollbackError(e.String(), err)
			util.WithField("entry", e.String()).Warn(rerr.Error())
			errs = append(errs, rerr)
		}
	}
	return errors.Join(errs...)
}

func undoOne(f kernel.Facade, e Entry) error {
	switch e.Kind {
	case IfaceCreated, BridgeCreated, VrfCreated, VethCreated:
		return f.DeleteLink(e.Name)
	case AddrAssigned:
		return f.DelAddr(e.Name, e.CIDR)
	case MasterSet:
		return f.ClearMaster(e.Name)
	default:
		return fmt.Errorf("unknown journal entry kind %v", e.Kind)
	}
}
