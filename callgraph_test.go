package movefcg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/movefcg/internal/move"
	"github.com/jward/movefcg/syntax"
)

const bankModule = `module 0x1::bank {
    use 0x1::coin::{Self, Coin, mint as make};
    use 0x1::vault as v;
    use std::vector;

    struct Account has key { owner: address }

    public fun open(owner: address, c: &Coin, acct: &mut Account) {
        assert!(coin::value(c) > 0, 1);
        let fresh = make(10);
        let held: Coin = fresh;
        held.value();
        c.value();
        acct.touch();
        v::store(held);
        Self::touch(acct);
        vector::push_back(&mut vector::empty<u64>(), 1);
        borrow_global<Account>(owner);
        unknown_thing().chain();
    }

    fun touch(_a: &mut Account) {}

    fun quiet(): u64 { 1 + 2 }

    native fun external(): u64;
}
`

const vaultModule = `module 0x1::vault {
    use 0x1::coin::Coin;

    public fun store(_c: Coin) {}
}
`

func bankCalls(t *testing.T) []CallSite {
	t.Helper()
	e, _ := indexProject(t, map[string]string{
		"sources/bank.move":  bankModule,
		"sources/coin.move":  coinModule,
		"sources/vault.move": vaultModule,
	})
	res, err := e.QueryFunction(context.Background(), "bank::open")
	require.NoError(t, err)
	return res.Calls
}

func TestCalls_ClassifiesAndResolves(t *testing.T) {
	t.Parallel()

	calls := bankCalls(t)
	want := []CallSite{
		{Type: CallQualified, Function: "coin::value", Module: "coin", File: "sources/coin.move", Line: 9},
		{Type: CallDirect, Function: "make", Module: "coin", File: "sources/coin.move", Line: 10},
		{Type: CallReceiver, Function: "coin::value", Module: "coin", File: "sources/coin.move", Line: 12},
		{Type: CallReceiver, Function: "coin::value", Module: "coin", File: "sources/coin.move", Line: 13},
		{Type: CallReceiver, Function: "bank::touch", Module: "bank", File: "sources/bank.move", Line: 14},
		{Type: CallQualified, Function: "v::store", Module: "vault", File: "sources/vault.move", Line: 15},
		{Type: CallQualified, Function: "Self::touch", Module: "bank", File: "sources/bank.move", Line: 16},
		{Type: CallQualified, Function: "vector::push_back", Module: "vector", Line: 17},
		{Type: CallQualified, Function: "vector::empty", Module: "vector", Line: 17},
		{Type: CallDirect, Function: "borrow_global", Module: "bank", Line: 18},
		{Type: CallDirect, Function: "unknown_thing", Module: "bank", Line: 19},
		{Type: CallReceiver, Function: "chain", Line: 19},
	}
	assert.Equal(t, want, calls)
}

func TestCalls_UnresolvedHaveEmptyFile(t *testing.T) {
	t.Parallel()

	for _, c := range bankCalls(t) {
		assert.Equal(t, c.File != "", c.Resolved())
	}
}

func TestCalls_NoCalls(t *testing.T) {
	t.Parallel()

	e, _ := indexProject(t, map[string]string{"bank.move": bankModule})

	for _, name := range []string{"quiet", "touch", "external"} {
		res, err := e.QueryFunction(context.Background(), name)
		require.NoError(t, err, name)
		require.NotNil(t, res.Calls, name)
		assert.Empty(t, res.Calls, name)
	}
}

func TestCalls_DirectPrefersOwnModule(t *testing.T) {
	t.Parallel()

	e, _ := indexProject(t, map[string]string{
		"a.move": "module 0x1::a { public fun helper() {} }",
		"b.move": "module 0x1::b { fun run() { helper() } fun helper() {} }",
	})

	res, err := e.QueryFunction(context.Background(), "run")
	require.NoError(t, err)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "b.move", res.Calls[0].File)
	assert.Equal(t, "b", res.Calls[0].Module)
}

func TestCalls_ReceiverShadowedByUntypedLet(t *testing.T) {
	t.Parallel()

	e, _ := indexProject(t, map[string]string{
		"coin.move": coinModule,
		"user.move": `module 0x1::user {
    use 0x1::coin::Coin;

    fun run(c: Coin) {
        c.value();
        let c = other();
        c.value();
    }
}`,
	})

	res, err := e.QueryFunction(context.Background(), "run")
	require.NoError(t, err)
	require.Len(t, res.Calls, 3)
	assert.Equal(t, "coin.move", res.Calls[0].File)
	assert.Equal(t, CallDirect, res.Calls[1].Type)
	assert.Equal(t, CallSite{Type: CallReceiver, Function: "value", Line: 7}, res.Calls[2])
}

func TestCalls_InnerBlockLetDoesNotLeak(t *testing.T) {
	t.Parallel()

	e, _ := indexProject(t, map[string]string{
		"b.move": "module 0x1::b { struct Pool { v: u64 } public fun drain(_p: &Pool) {} }",
		"c.move": `module 0x1::c {
    struct Vault { v: u64 }
    public fun make(): Vault { Vault { v: 0 } }
    public fun keep(_v: Vault) {}
    public fun drain(_v: &Vault) {}
}`,
		"a.move": `module 0x1::a {
    use 0x1::b::Pool;
    use 0x1::c::{Self, Vault};

    fun f(p: &Pool) {
        if (true) {
            let p: Vault = c::make();
            p.drain();
            c::keep(p);
        };
        p.drain();
    }
}`,
	})

	res, err := e.QueryFunction(context.Background(), "a::f")
	require.NoError(t, err)
	want := []CallSite{
		{Type: CallQualified, Function: "c::make", Module: "c", File: "c.move", Line: 7},
		{Type: CallReceiver, Function: "c::drain", Module: "c", File: "c.move", Line: 8},
		{Type: CallQualified, Function: "c::keep", Module: "c", File: "c.move", Line: 9},
		{Type: CallReceiver, Function: "b::drain", Module: "b", File: "b.move", Line: 11},
	}
	assert.Equal(t, want, res.Calls)
}

func TestCalls_BlockUse(t *testing.T) {
	t.Parallel()

	e, _ := indexProject(t, map[string]string{
		"b.move": "module 0x1::b { public fun helper() {} }",
		"a.move": `module 0x1::a {
    fun f() {
        use 0x1::b as bb;
        bb::helper();
    }

    fun g() {
        bb::helper();
    }

    fun k() {
        if (true) {
            use 0x1::b::helper as h;
            h();
        };
        h();
    }
}`,
	})

	calls := func(name string) []CallSite {
		res, err := e.QueryFunction(context.Background(), name)
		require.NoError(t, err, name)
		return res.Calls
	}
	assert.Equal(t, []CallSite{
		{Type: CallQualified, Function: "bb::helper", Module: "b", File: "b.move", Line: 4},
	}, calls("f"))
	assert.Equal(t, []CallSite{
		{Type: CallQualified, Function: "bb::helper", Module: "bb", Line: 8},
	}, calls("g"))
	assert.Equal(t, []CallSite{
		{Type: CallDirect, Function: "h", Module: "b", File: "b.move", Line: 14},
		{Type: CallDirect, Function: "h", Module: "a", Line: 16},
	}, calls("k"))
}

func TestCallGraph_CacheReturnsCopies(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"a.move": pkgA,
		"b.move": pkgB,
	})
	parses := 0
	g := NewCallGraph(idx, func() syntax.Parser {
		parses++
		return move.NewParser()
	}, 4)

	fn := idx.Functions["f"][0]
	first, err := g.Calls(context.Background(), fn)
	require.NoError(t, err)
	first[0].Function = "mutated"

	second, err := g.Calls(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, "b::g", second[0].Function)
	assert.Equal(t, 1, parses, "the second lookup is served from the cache")
}

func TestCallGraph_HonoursContext(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{"a.move": pkgA})
	g := NewCallGraph(idx, func() syntax.Parser { return move.NewParser() }, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Calls(ctx, idx.Functions["f"][0])
	require.ErrorIs(t, err, context.Canceled)
}

func TestBaseType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Coin":                 "Coin",
		"&Coin":                "Coin",
		"&mut Coin<T>":         "Coin",
		"coin::Coin<u64>":      "coin::Coin",
		"&mut 0x1::coin::Coin": "0x1::coin::Coin",
		"vector<u8>":           "vector",
		"(u64, bool)":          "",
		"":                     "",
		"|u64| u64":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, baseType(in), in)
	}
}
