package hint

import "github.com/joeycumines/go-dbrouter/internal/sqlparser"

// Parser holds the per-session state the hint grammar mutates: the stack
// of active (possibly named) hints, and the table of named hints
// registered by a "prepare".
type Parser struct {
	stack []*Hint
	named map[string]*Hint
}

// NewParser returns a parser with empty stack and registry.
func NewParser() *Parser {
	return &Parser{named: make(map[string]*Hint)}
}

// ParseSQL extracts every maxscale hint comment in sql, applies any stack
// push/pop/prepare side effects immediately, and returns the hint chain
// that applies to this statement. It is Stage followed by an unconditional
// Commit — use Stage directly when the caller needs the
// commit/revert_update two-phase contract from spec §4.6.
func (p *Parser) ParseSQL(sql []byte) *Hint {
	h, pend := p.Stage(sql)
	p.Commit(pend)
	return h
}

// Pending is a staged stack/registry mutation from Stage, applied only by
// Commit. Discarding it (never calling Commit) leaves the Parser exactly as
// it was before Stage — the hint-side half of the classifier's
// update_route_info / commit_route_info_update / revert_update contract.
type Pending struct {
	stack []*Hint
	named map[string]*Hint
}

// Stage parses every maxscale comment in sql against a private copy of the
// stack and registry, returning the hint chain that would apply to this
// statement and the resulting mutation, without touching the Parser itself.
func (p *Parser) Stage(sql []byte) (*Hint, *Pending) {
	staged := &Parser{
		stack: append([]*Hint(nil), p.stack...),
		named: make(map[string]*Hint, len(p.named)),
	}
	for k, v := range p.named {
		staged.named[k] = v
	}

	var result *Hint
	for _, c := range ExtractComments(sql) {
		if h := staged.parseOne(sql[c.Start:c.End]); h != nil {
			result = appendHint(result, h)
		}
	}
	// A statement that pushed or popped does not itself inherit the stack
	// top: a pushed hint applies from the next statement onward.
	if result == nil && len(staged.stack) > 0 && len(staged.stack) == len(p.stack) {
		result = staged.stack[len(staged.stack)-1]
	}
	return result, &Pending{stack: staged.stack, named: staged.named}
}

// Commit applies a Pending mutation previously returned by Stage.
func (p *Parser) Commit(pend *Pending) {
	p.stack = pend.stack
	p.named = pend.named
}

// parseOne parses a single comment body, against:
//
//	hint     := "maxscale" (stacking | definition)
//	stacking := "start" definition | "end"
//	          | name "prepare" definition | name "start" [definition]
//
// Only a bare `definition` (the top-level alternative, not reached via
// "start"/"prepare") returns a hint that applies to the statement the
// comment was found in; every stacking form mutates the stack/registry and
// returns nil — per scenario 5 in spec §8, "start" takes effect from the
// *next* statement onward, not its own.
func (p *Parser) parseOne(comment []byte) *Hint {
	s := sqlparser.NewScanner(comment)
	if !s.TryKeyword("maxscale") {
		return nil
	}

	switch {
	case s.TryKeyword("start"):
		def := parseDefinition(s)
		if def == nil || !s.Exhausted() {
			return nil
		}
		p.push(def)
		return nil

	case s.TryKeyword("end"):
		if !s.Exhausted() {
			return nil
		}
		p.pop()
		return nil
	}

	mark := s.Mark()
	if def := parseDefinition(s); def != nil && s.Exhausted() {
		return def
	}
	s.Reset(mark)

	name, ok := s.TryIdent()
	if !ok {
		return nil
	}

	switch {
	case s.TryKeyword("prepare"):
		def := parseDefinition(s)
		if def == nil || !s.Exhausted() {
			return nil
		}
		p.named[name] = def
		return nil

	case s.TryKeyword("start"):
		if s.Exhausted() {
			def, ok := p.named[name]
			if !ok {
				return nil
			}
			p.push(clone(def))
			return nil
		}
		def := parseDefinition(s)
		if def == nil || !s.Exhausted() {
			return nil
		}
		p.push(def)
		return nil

	default:
		return nil
	}
}

// parseDefinition parses the `definition` production:
//
//	definition := "route" "to" ("master"|"slave"|"last"|"server" name)
//	            | name "=" value
//
// Returns nil on any grammar mismatch; the scanner position is then
// meaningless to the caller, which backtracks via Mark/Reset itself.
func parseDefinition(s *sqlparser.Scanner) *Hint {
	if s.TryKeyword("route") {
		if !s.TryKeyword("to") {
			return nil
		}
		switch {
		case s.TryKeyword("master"):
			return &Hint{Tag: RouteToMaster}
		case s.TryKeyword("slave"):
			return &Hint{Tag: RouteToSlave}
		case s.TryKeyword("last"):
			return &Hint{Tag: RouteToLastUsed}
		case s.TryKeyword("server"):
			name, ok := s.TryIdent()
			if !ok {
				return nil
			}
			return &Hint{Tag: RouteToNamedServer, Target: name}
		default:
			return nil
		}
	}

	key, ok := s.TryIdent()
	if !ok || !s.TryByte('=') {
		return nil
	}
	value, ok := s.TryValue()
	if !ok {
		return nil
	}
	return &Hint{Tag: Parameter, Key: key, Value: value}
}

func (p *Parser) push(h *Hint) { p.stack = append(p.stack, h) }

func (p *Parser) pop() {
	if len(p.stack) == 0 {
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
}
