package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/movefcg/internal/model"
	"github.com/jward/movefcg/internal/move"
	"github.com/jward/movefcg/syntax"
)

func extract(t *testing.T, src string) *Result {
	t.Helper()
	tree, err := move.NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return Extract(tree, "sources/a.move")
}

const coinSource = `module 0x1::coin {
    use std::signer;
    use 0x1::event::{Self, emit as send};
    friend 0x1::treasury;

    const MAX: u64 = 100;

    struct Coin<phantom T> has key, store {
        value: u64,
    }

    #[view]
    public fun value<T>(c: &Coin<T>): u64 {
        c.value
    }

    public(friend) entry fun mint(account: &signer, amount: u64) acquires Coin {
        signer::address_of(account);
    }

    native public fun burn(c: Coin);

    fun helper() {}
}
`

func TestExtract_Module(t *testing.T) {
	t.Parallel()

	res := extract(t, coinSource)
	require.Len(t, res.Modules, 1)

	mod := res.Modules[0]
	assert.Equal(t, model.ModuleIdentity{Address: "0x1", Name: "coin"}, mod.Identity)
	assert.Equal(t, "sources/a.move", mod.File)
	assert.Equal(t, 1, mod.Span.StartLine)
	assert.Equal(t, 24, mod.Span.EndLine)
	assert.Empty(t, mod.Functions, "functions are attached by the index builder")
	assert.Equal(t, []string{"0x1::treasury"}, mod.Friends)

	require.Len(t, mod.Constants, 1)
	assert.Equal(t, "MAX", mod.Constants[0].Name)
	assert.Equal(t, "u64", mod.Constants[0].Type)
	assert.Equal(t, "100", mod.Constants[0].Value)

	require.Len(t, mod.Structs, 1)
	st := mod.Structs[0]
	assert.Equal(t, "Coin", st.Name)
	assert.Equal(t, "<phantom T>", st.TypeParams)
	assert.Equal(t, []string{"key", "store"}, st.Abilities)
	assert.Equal(t, []model.Field{{Name: "value", Type: "u64"}}, st.Fields)

	assert.Equal(t, []model.UseDecl{
		{Address: "std", Module: "signer"},
		{Address: "0x1", Module: "event"},
		{Address: "0x1", Module: "event", Members: []model.UseMember{{Name: "emit", Alias: "send"}}},
	}, mod.Uses)
}

func TestExtract_Functions(t *testing.T) {
	t.Parallel()

	res := extract(t, coinSource)
	require.Len(t, res.Functions, 4)

	value := res.Functions[0]
	assert.Equal(t, "value", value.Name)
	assert.Equal(t, model.ModuleIdentity{Address: "0x1", Name: "coin"}, value.Module)
	assert.Equal(t, model.Public, value.Visibility)
	assert.Empty(t, value.Modifiers)
	assert.Equal(t, []string{"view"}, value.Attributes)
	assert.Equal(t, "<T>", value.TypeParams)
	assert.Equal(t, []model.Parameter{{Name: "c", Type: "&Coin<T>"}}, value.Parameters)
	assert.Equal(t, "u64", value.ReturnType)
	assert.Equal(t, 13, value.Span.StartLine)
	assert.Equal(t, 15, value.Span.EndLine)
	assert.Equal(t, "public fun value<T>(c: &Coin<T>): u64 {\n        c.value\n    }", value.Span.Text)
	assert.Equal(t, 0, value.Ordinal)

	mint := res.Functions[1]
	assert.Equal(t, model.PublicFriend, mint.Visibility)
	assert.Equal(t, []model.Modifier{model.Entry}, mint.Modifiers)
	assert.Empty(t, mint.Attributes, "attributes attach only to the next declaration")
	assert.Equal(t, []string{"Coin"}, mint.Acquires)
	assert.Equal(t, []model.Parameter{{Name: "account", Type: "&signer"}, {Name: "amount", Type: "u64"}}, mint.Parameters)
	assert.Empty(t, mint.ReturnType)

	burn := res.Functions[2]
	assert.Equal(t, model.Public, burn.Visibility)
	assert.Equal(t, []model.Modifier{model.Native}, burn.Modifiers)
	assert.Equal(t, "native public fun burn(c: Coin);", burn.Span.Text)

	helper := res.Functions[3]
	assert.Equal(t, model.Private, helper.Visibility)
	assert.Empty(t, helper.Modifiers)
	assert.Equal(t, 3, helper.Ordinal)
}

func TestExtract_ModifiersDoNotLeak(t *testing.T) {
	t.Parallel()

	res := extract(t, `module m {
    public entry
    struct S {}
    fun f() {}
    inline fun g() {}
}`)
	require.Len(t, res.Functions, 2)
	assert.Equal(t, model.Private, res.Functions[0].Visibility)
	assert.Empty(t, res.Functions[0].Modifiers)
	assert.Equal(t, []model.Modifier{model.Inline}, res.Functions[1].Modifiers)
}

func TestExtract_ModuleForms(t *testing.T) {
	t.Parallel()

	res := extract(t, `module plain { fun a() {} }
address 0x42 {
    module inner { fun b() {} }
    module 0x7::explicit { fun c() {} }
}`)
	require.Len(t, res.Modules, 3)
	assert.Equal(t, "plain", res.Modules[0].Identity.Key())
	assert.Equal(t, "0x42::inner", res.Modules[1].Identity.Key())
	assert.Equal(t, "0x7::explicit", res.Modules[2].Identity.Key())

	require.Len(t, res.Functions, 3)
	assert.Equal(t, "0x42::inner::b", res.Functions[1].QualifiedName())

	res = extract(t, "module pkg::shop;\n\npublic fun buy() {}\n")
	require.Len(t, res.Modules, 1)
	assert.Equal(t, "pkg::shop", res.Modules[0].Identity.Key())
	require.Len(t, res.Functions, 1)
	assert.Equal(t, 3, res.Functions[0].Span.StartLine)
}

func TestExtract_MultipleModulesInOneFile(t *testing.T) {
	t.Parallel()

	res := extract(t, `module Pkg::a { public fun f(x: u64): u64 { b::g(x) } }
module Pkg::b { fun g(x: u64): u64 { x } }`)
	require.Len(t, res.Modules, 2)
	require.Len(t, res.Functions, 2)
	assert.Equal(t, "Pkg::a", res.Functions[0].Module.Key())
	assert.Equal(t, "Pkg::b", res.Functions[1].Module.Key())
}

func TestExtract_PartialRecords(t *testing.T) {
	t.Parallel()

	res := extract(t, `module m {
    fun (x: u64) {}
    fun ok(y: u64, : u8) {}
}`)
	require.Len(t, res.Functions, 2)
	assert.Empty(t, res.Functions[0].Name)
	assert.Equal(t, "ok", res.Functions[1].Name)
	assert.Equal(t, []model.Parameter{{Name: "y", Type: "u64"}}, res.Functions[1].Parameters)
}

func TestExtract_FunctionsOutsideModulesIgnored(t *testing.T) {
	t.Parallel()

	res := extract(t, "script { fun main() {} }\nfun loose() {}\n")
	assert.Empty(t, res.Modules)
	assert.Empty(t, res.Functions)
}

func TestExtract_NilTree(t *testing.T) {
	t.Parallel()

	res := Extract(nil, "x.move")
	assert.Equal(t, "x.move", res.File)
	assert.Empty(t, res.Modules)

	res = Extract(&syntax.Tree{}, "y.move")
	assert.Empty(t, res.Functions)
}
