package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambertime/amberchain/types"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name   string
		entity EntityType
		want   Type
	}{
		{"connect", EntityNone, TypeConnect},
		{"Send", EntityNone, TypeSend},
		{"connect, send", EntityNone, TypeConnect | TypeSend},
		{"all", EntityNone, 0x313f},
		{"all", EntityStream, TypeWrite | TypeActivate | TypeAdmin},
		{"all", EntityAsset, TypeIssue | TypeActivate | TypeAdmin},
		{"write", EntityStream, TypeWrite},
		{"issue", EntityStream, TypeUnknown},
		{"mine", EntityAsset, TypeUnknown},
		{"connect,bogus", EntityNone, TypeUnknown},
		{"", EntityNone, TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.entity.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseType(tt.name, tt.entity))
		})
	}
}

func TestActivateLevel(t *testing.T) {
	assert.True(t, ActivateLevel(TypeConnect))
	assert.True(t, ActivateLevel(TypeConnect|TypeSend|TypeReceive|TypeWrite))
	assert.False(t, ActivateLevel(TypeUnknown))
	assert.False(t, ActivateLevel(TypeMine))
	assert.False(t, ActivateLevel(TypeWrite|TypeAdmin))
	assert.False(t, ActivateLevel(TypeActivate))
}

func TestRequiredRight(t *testing.T) {
	tests := []struct {
		entity, activate bool
		want             string
	}{
		{true, true, "activate or admin permission for this entity"},
		{true, false, "admin permission for this entity"},
		{false, true, "activate or admin permission"},
		{false, false, "admin permission"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiredRight(tt.entity, tt.activate).String())
		})
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "connect,send,admin", (TypeAdmin | TypeSend | TypeConnect).String())
	assert.Equal(t, "unknown", TypeUnknown.String())
	assert.Equal(t, []Type{TypeIssue, TypeMine}, Bits(TypeMine|TypeIssue))

	name, ok := TypeName(TypeActivate)
	assert.True(t, ok)
	assert.Equal(t, "activate", name)
	_, ok = TypeName(TypeConnect | TypeSend)
	assert.False(t, ok)
}

func TestResolver(t *testing.T) {
	f := newFixture(t)

	entityID, name := SplitPermission("my.stream.write")
	assert.Equal(t, "my.stream", entityID)
	assert.Equal(t, "write", name)

	r, err := f.svc.resolver.Resolve(context.Background(), "S1.write")
	require.NoError(t, err)
	assert.Equal(t, f.s1, r.Entity)
	assert.Equal(t, TypeWrite, r.Type)

	r, err = f.svc.resolver.Resolve(context.Background(), txid(0xa2)+".admin")
	require.NoError(t, err)
	assert.Equal(t, f.s2, r.Entity)

	r, err = f.svc.resolver.Resolve(context.Background(), "mine")
	require.NoError(t, err)
	assert.Nil(t, r.Entity)

	_, err = f.svc.resolver.Resolve(context.Background(), "missing.write")
	require.True(t, types.IsKind(err, types.KindInvalidParameter))
	assert.Contains(t, err.Error(), "Entity with this identifier not found: missing")
}
