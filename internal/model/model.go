// Package model holds the records produced by extraction and assembled into a
// ProjectIndex. Records are created once and treated as read-only afterwards.
package model

import "strings"

// SourceSpan locates a declaration: 1-based inclusive lines plus the raw text.
type SourceSpan struct {
	File      string
	StartLine int
	EndLine   int
	Text      string
}

type Parameter struct {
	Name string
	Type string
}

// Visibility of a function. The zero value is Private.
type Visibility int

const (
	Private Visibility = iota
	Public
	PublicFriend
	PublicPackage
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case PublicFriend:
		return "public(friend)"
	case PublicPackage:
		return "public(package)"
	default:
		return "private"
	}
}

// ParseVisibility maps the textual forms accepted by the Move grammar,
// including the `friend fun` and `package fun` shorthands.
func ParseVisibility(s string) Visibility {
	s = strings.Join(strings.Fields(s), "")
	switch s {
	case "public":
		return Public
	case "public(friend)", "friend":
		return PublicFriend
	case "public(package)", "package":
		return PublicPackage
	default:
		return Private
	}
}

type Modifier string

const (
	Entry  Modifier = "entry"
	Native Modifier = "native"
	Inline Modifier = "inline"
)

// IsModifier reports whether s names one of the function modifiers.
func IsModifier(s string) bool {
	switch Modifier(s) {
	case Entry, Native, Inline:
		return true
	}
	return false
}

// ModuleIdentity identifies a module. Modules with the same name but a
// different or absent address are distinct.
type ModuleIdentity struct {
	Address string
	Name    string
}

// Key returns "address::name" when an address is present, else the bare name.
func (m ModuleIdentity) Key() string {
	if m.Address != "" {
		return m.Address + "::" + m.Name
	}
	return m.Name
}

func (m ModuleIdentity) String() string { return m.Key() }

type FunctionRecord struct {
	Module     ModuleIdentity
	Name       string
	Visibility Visibility
	Modifiers  []Modifier
	TypeParams string
	Parameters []Parameter
	ReturnType string
	Acquires   []string
	Attributes []string
	Span       SourceSpan

	// Ordinal is the declaration position of the function within its file.
	Ordinal int
}

// QualifiedName returns "module_key::name".
func (f *FunctionRecord) QualifiedName() string {
	return f.Module.Key() + "::" + f.Name
}

// HasModifier reports whether m is among the function's modifiers.
func (f *FunctionRecord) HasModifier(m Modifier) bool {
	for _, have := range f.Modifiers {
		if have == m {
			return true
		}
	}
	return false
}

type Field struct {
	Name string
	Type string
}

type StructRecord struct {
	Module     ModuleIdentity
	Name       string
	TypeParams string
	Abilities  []string
	Fields     []Field
	Span       SourceSpan
}

type ConstantRecord struct {
	Module ModuleIdentity
	Name   string
	Type   string
	Value  string
	Span   SourceSpan
}

// UseMember is one imported member of a use declaration, e.g. `transfer as t`.
type UseMember struct {
	Name  string
	Alias string
}

// UseDecl is a `use` declaration. Address is empty for paths like `use m::f`.
type UseDecl struct {
	Address string
	Module  string
	Alias   string
	Members []UseMember
}

// ModuleRef returns the identity the use declaration points at.
func (u UseDecl) ModuleRef() ModuleIdentity {
	return ModuleIdentity{Address: u.Address, Name: u.Module}
}

type ModuleRecord struct {
	Identity  ModuleIdentity
	File      string
	Functions []*FunctionRecord
	Structs   []*StructRecord
	Constants []*ConstantRecord
	Uses      []UseDecl
	Friends   []string
	Span      SourceSpan
}

// Function returns the first function of the module with the given name.
func (m *ModuleRecord) Function(name string) *FunctionRecord {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Struct returns the struct of the module with the given name.
func (m *ModuleRecord) Struct(name string) *StructRecord {
	for _, s := range m.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

type Dependency struct {
	Name    string
	Version string
	Path    string
}

// CallType classifies a call expression.
type CallType string

const (
	CallDirect    CallType = "direct"
	CallQualified CallType = "qualified"
	CallReceiver  CallType = "receiver"
)

// CallSite is one call found in a function body. File is empty when the
// callee could not be resolved to a declaration in the project.
type CallSite struct {
	Type     CallType
	Function string
	Module   string
	File     string
	Line     int
}

// Resolved reports whether the callee was found in the project.
func (c CallSite) Resolved() bool { return c.File != "" }
