package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleIdentityKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0x1::coin", ModuleIdentity{Address: "0x1", Name: "coin"}.Key())
	assert.Equal(t, "coin", ModuleIdentity{Name: "coin"}.Key())
}

func TestParseVisibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Visibility
	}{
		{"public", Public},
		{"public(friend)", PublicFriend},
		{"public( friend )", PublicFriend},
		{"friend", PublicFriend},
		{"public(package)", PublicPackage},
		{"package", PublicPackage},
		{"", Private},
		{"bogus", Private},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseVisibility(tt.in))
		})
	}
}

func TestVisibilityString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "private", Private.String())
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "public(friend)", PublicFriend.String())
	assert.Equal(t, "public(package)", PublicPackage.String())
}

func TestProjectIndex_Defaults(t *testing.T) {
	t.Parallel()
	idx := NewProjectIndex("/tmp/x", "")
	assert.Equal(t, "unknown", idx.PackageName)
	assert.Empty(t, idx.Modules)
	assert.Empty(t, idx.Functions)
	assert.Zero(t, idx.FunctionCount())
	assert.Empty(t, idx.OrderedModules())
}

func TestFunctionRecordHelpers(t *testing.T) {
	t.Parallel()
	f := &FunctionRecord{
		Module:    ModuleIdentity{Address: "0x1", Name: "m"},
		Name:      "f",
		Modifiers: []Modifier{Entry, Inline},
	}
	assert.Equal(t, "0x1::m::f", f.QualifiedName())
	assert.True(t, f.HasModifier(Entry))
	assert.False(t, f.HasModifier(Native))
}
