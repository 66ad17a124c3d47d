package ast

type ScopeKind uint8

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeClassBody
)

// Scope is a lexical region owning a set of bindings. The Scope & Binding
// Analyzer (component C) builds one tree of these per module; the renamer
// later walks the tree outside-in to assign collision-free output names.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope

	// Declared-in-this-scope bindings, keyed by source name. "var" and
	// hoisted function declarations are inserted into the nearest
	// ScopeFunction/ScopeModule ancestor instead of the block they textually
	// appear in - that hoisting is applied before this map is populated.
	Members map[string]Ref

	// Symbols synthesized by a later pass (e.g. a namespace object for a
	// wrapped CommonJS module) that still need a scope to be renamed in.
	Generated []Ref

	// True if a direct, unqualified "eval" call appears somewhere in this
	// scope's textual extent - forces every name in scope to be reserved
	// since eval'd code could reference any of them by its original name.
	ContainsDirectEval bool
}

func NewScope(kind ScopeKind, parent *Scope) *Scope {
	s := &Scope{Kind: kind, Parent: parent, Members: make(map[string]Ref)}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Lookup performs the lexical, innermost-to-outermost search that the Scope
// & Binding Analyzer uses to resolve every identifier reference.
func (s *Scope) Lookup(name string) (Ref, bool) {
	for scope := s; scope != nil; scope = scope.Parent {
		if ref, ok := scope.Members[name]; ok {
			return ref, true
		}
	}
	return Ref{}, false
}

// HoistTarget returns the scope that a "var" or function declaration
// textually inside "s" actually gets declared in.
func (s *Scope) HoistTarget() *Scope {
	for scope := s; scope != nil; scope = scope.Parent {
		if scope.Kind == ScopeFunction || scope.Kind == ScopeModule {
			return scope
		}
	}
	return s
}
