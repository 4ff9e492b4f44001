package movefcg

import "github.com/jward/movefcg/internal/model"

// Public aliases for the internal record types. These are Go type aliases,
// identical to the internal types, so no conversion is needed.

type Index = model.ProjectIndex
type Module = model.ModuleRecord
type ModuleIdentity = model.ModuleIdentity
type Function = model.FunctionRecord
type Parameter = model.Parameter
type Struct = model.StructRecord
type Constant = model.ConstantRecord
type UseDecl = model.UseDecl
type Dependency = model.Dependency
type SourceSpan = model.SourceSpan
type Visibility = model.Visibility
type Modifier = model.Modifier
type CallSite = model.CallSite
type CallType = model.CallType
type Diagnostic = model.Diagnostic
type DiagnosticKind = model.DiagnosticKind

const (
	CallDirect    = model.CallDirect
	CallQualified = model.CallQualified
	CallReceiver  = model.CallReceiver
)
