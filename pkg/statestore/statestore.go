// Package statestore persists the outcome of one reconciliation attempt to
// local disk: the submitted desired state, whether it succeeded, and the
// journal of mutations applied. It is a best-effort reconciliation hint,
// not a correctness oracle — the reconciler must tolerate divergence
// between stored state and live kernel state.
package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/vxlanevpn/reconciler/internal/journal"
	"github.com/vxlanevpn/reconciler/pkg/model"
	"github.com/vxlanevpn/reconciler/pkg/util"
)

// defaultFileName is fixed relative to the executable's working tree, as
// the donor's state file was fixed relative to its own package directory.
const defaultFileName = "vxlan_bgp_evpn_state.json"

// JournalOp is one persisted journal entry, grouped by object kind.
type JournalOp struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	CIDR   string `json:"cidr,omitempty"`
	Master string `json:"master,omitempty"`
}

// Record is the single on-disk state document.
type Record struct {
	Timestamp  time.Time                `json:"timestamp"`
	Config     model.DesiredState       `json:"config"`
	Success    bool                     `json:"success"`
	Operations map[string][]JournalOp   `json:"operations"`
}

// Store reads and writes a Record at a fixed path.
type Store struct {
	Path string
}

// New returns a Store rooted at dir (the executable's working directory),
// using the fixed state file name.
func New(dir string) *Store {
	return &Store{Path: filepath.Join(dir, defaultFileName)}
}

// Load reads the persisted record. A missing file or any read/parse
// failure is reported as "no prior state" (nil, nil) with a logged
// warning, per the StorePersistence error kind: non-fatal, reconciliation
// proceeds as an initial apply.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		util.Warnf("state store: failed to load %s: %v", s.Path, err)
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		util.Warnf("state store: failed to parse %s: %v", s.Path, err)
		return nil, nil
	}
	return &rec, nil
}

// Save writes a Record, overwriting any prior content. Writes are
// best-effort: a failure is logged and returned as a *util.StoreError but
// never aborts the caller's reconciliation outcome.
func (s *Store) Save(config model.DesiredState, success bool, entries []journal.Entry) error {
	rec := Record{
		Timestamp:  time.Now(),
		Config:     config,
		Success:    success,
		Operations: groupByKind(entries),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		serr := util.NewStoreError("write", s.Path, err)
		util.Warnf("%s", serr.Error())
		return serr
	}

	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		serr := util.NewStoreError("write", s.Path, err)
		util.Warnf("%s", serr.Error())
		return serr
	}
	return nil
}

func groupByKind(entries []journal.Entry) map[string][]JournalOp {
	groups := map[string][]JournalOp{
		"interfaces":       {},
		"bridges":          {},
		"vrfs":             {},
		"veths":            {},
		"ip_assignments":   {},
		"master_relations": {},
	}
	for _, e := range entries {
		op := JournalOp{Name: e.Name, Action: e.Kind.Action(), CIDR: e.CIDR, Master: e.Master}
		switch e.Kind {
		case journal.IfaceCreated, journal.IfaceRemoved:
			groups["interfaces"] = append(groups["interfaces"], op)
		case journal.BridgeCreated, journal.BridgeRemoved:
			groups["bridges"] = append(groups["bridges"], op)
		case journal.VrfCreated, journal.VrfRemoved:
			groups["vrfs"] = append(groups["vrfs"], op)
		case journal.VethCreated, journal.VethRemoved:
			groups["veths"] = append(groups["veths"], op)
		case journal.AddrAssigned, journal.AddrUnassigned:
			groups["ip_assignments"] = append(groups["ip_assignments"], op)
		case journal.MasterSet, journal.MasterCleared:
			groups["master_relations"] = append(groups["master_relations"], op)
		}
	}
	return groups
}
