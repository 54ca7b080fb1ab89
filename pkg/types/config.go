// Copyright 2025 Certen Protocol

package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// PermissionKind tags who may perform a gated action (Upload, Instantiate).
type PermissionKind string

const (
	PermissionEverybody   PermissionKind = "everybody"
	PermissionNobody      PermissionKind = "nobody"
	PermissionSomebodies  PermissionKind = "somebodies"
)

// Permission is Everybody | Nobody | Somebodies(set<Address>).
type Permission struct {
	Kind       PermissionKind     `json:"kind"`
	Somebodies map[Address]struct{} `json:"-"`
}

func Everybody() Permission  { return Permission{Kind: PermissionEverybody} }
func Nobody() Permission     { return Permission{Kind: PermissionNobody} }
func Somebodies(addrs ...Address) Permission {
	set := make(map[Address]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return Permission{Kind: PermissionSomebodies, Somebodies: set}
}

// Allows reports whether sender is permitted under this policy.
func (p Permission) Allows(sender Address) bool {
	switch p.Kind {
	case PermissionEverybody:
		return true
	case PermissionNobody:
		return false
	case PermissionSomebodies:
		_, ok := p.Somebodies[sender]
		return ok
	default:
		return false
	}
}

type permissionJSON struct {
	Kind       PermissionKind `json:"kind"`
	Somebodies []Address      `json:"somebodies,omitempty"`
}

func (p Permission) MarshalJSON() ([]byte, error) {
	pj := permissionJSON{Kind: p.Kind}
	if p.Kind == PermissionSomebodies {
		for a := range p.Somebodies {
			pj.Somebodies = append(pj.Somebodies, a)
		}
		sort.Slice(pj.Somebodies, func(i, j int) bool { return pj.Somebodies[i].String() < pj.Somebodies[j].String() })
	}
	return json.Marshal(pj)
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var pj permissionJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	switch pj.Kind {
	case PermissionEverybody, PermissionNobody:
		*p = Permission{Kind: pj.Kind}
	case PermissionSomebodies:
		*p = Somebodies(pj.Somebodies...)
	default:
		return fmt.Errorf("unknown permission kind %q", pj.Kind)
	}
	return nil
}

// Permissions bundles the upload/instantiate gates.
type Permissions struct {
	Upload      Permission `json:"upload"`
	Instantiate Permission `json:"instantiate"`
}

// HookErrorPolicy controls what happens when a begin/end-blocker or cronjob
// entry point returns an error. Defaults to PolicyFatal, the behavior the
// source this spec was distilled from used (see SPEC_FULL.md §7/§9).
type HookErrorPolicy string

const (
	PolicyFatal           HookErrorPolicy = "fatal"
	PolicyLogAndContinue  HookErrorPolicy = "log_and_continue"
	PolicyRevertHookOnly  HookErrorPolicy = "revert_hook_only"
)

// Cronjob pairs a contract address with how often its cron_execute entry
// point should fire. A slice rather than a map keyed by Address, since
// Address isn't a JSON-object-key-safe type (it implements json.Marshaler,
// not encoding.TextMarshaler, which is what encoding/json requires of a map
// key — see pkg/contracts/bank's AddressBalance for the same rule).
type Cronjob struct {
	Contract Address       `json:"contract"`
	Interval time.Duration `json:"interval"`
}

// Config is the chain's on-chain configuration, set at genesis and mutable
// only through a dedicated (out-of-scope) governance message in the full
// system; the core only reads it.
type Config struct {
	Owner         Address       `json:"owner"`
	Bank          Address       `json:"bank"`
	Taxman        Address       `json:"taxman"`
	Cronjobs      []Cronjob     `json:"cronjobs,omitempty"`
	Permissions   Permissions   `json:"permissions"`
	MaxOrphanAge  time.Duration `json:"max_orphan_age"`
	BeginBlockers []Address     `json:"begin_blockers,omitempty"`
	EndBlockers   []Address     `json:"end_blockers,omitempty"`

	// HookErrorPolicy resolves the §9 open question on begin/end-blocker and
	// cronjob failures. See pkg/app for where this is consulted.
	HookErrorPolicy HookErrorPolicy `json:"hook_error_policy,omitempty"`
}

// ContractInfo is stored per deployed address under contract/{address}.
type ContractInfo struct {
	CodeHash Hash     `json:"code_hash"`
	Label    string   `json:"label,omitempty"`
	Admin    *Address `json:"admin,omitempty"`
}

// GenesisState is the app_state payload passed to InitChain.
type GenesisState struct {
	Config    Config          `json:"config"`
	Msgs      []Message       `json:"msgs"`
	AppConfig json.RawMessage `json:"app_config,omitempty"`
}

// GenesisSender is the sentinel sender address used for every message
// processed during InitChain.
var GenesisSender = Address{} // all-zero, reserved; genesis addresses derive from it
