// Package classifier implements the per-session QueryClassifier from spec
// §4.6: it combines the transaction tracker, the temporary-table set, the
// prepared-statement table, and routing hints into a RouteInfo for each
// request buffer, with the two-phase update/commit/revert contract spec §3
// requires.
package classifier

import (
	"github.com/joeycumines/go-dbrouter/internal/sqlparser"
	"github.com/joeycumines/go-dbrouter/internal/txtracker"
	"github.com/joeycumines/go-dbrouter/internal/wire"
)

// Target is the routing-decision bitmask (spec §3: "same variants as
// [Hint tags] plus ALL, RLAG_MAX").
type Target uint16

const (
	Master Target = 1 << iota
	Slave
	LastUsed
	NamedServer
	All
	RlagMax
)

// Flags are the per-RouteInfo bits from spec §3.
type Flags uint8

const (
	LoadDataActive Flags = 1 << iota
	TrxIsReadOnly
	PSContinuation
	MultiPartPacket
	NextMultiPartPacket
)

func (f Flags) Has(want Flags) bool { return f&want == want }

// RouteInfo is the per-statement decision record from spec §3.
type RouteInfo struct {
	Target       Target
	TargetServer string // set only when Target.Has(NamedServer)
	TypeMask     sqlparser.TypeMask
	Command      wire.Command
	StmtID       uint32
	Flags        Flags
	// Tracker is the snapshot of the transaction tracker used to make this
	// decision — taken before this statement's mask was folded in.
	Tracker txtracker.Tracker
}
