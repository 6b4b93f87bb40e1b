package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambertime/amberchain/services/permission"
)

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(strings.NewReader(`
height: 12
entities:
  - name: root
    txid: ` + txid(1) + `
    open: true
changes:
  - admin: ` + addr(t, 1).String() + `
    address: ` + addr(t, 2).String() + `
    permission: connect,send
    from: 5
    to: 100
    threshold: 1
`))
	require.NoError(t, err)
	assert.Equal(t, uint32(12), seed.Height)
	require.Len(t, seed.Changes, 1)
	require.NotNil(t, seed.Changes[0].To)
	assert.Equal(t, int64(100), *seed.Changes[0].To)

	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.ApplySeed(ctx, seed))
	assert.Equal(t, uint32(12), s.Height())

	root, err := s.Resolve(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.AnyoneCanWrite)
	assert.Equal(t, permission.EntityStream, root.Type)

	ok, err := s.CanReceive(ctx, addr(t, 2))
	require.NoError(t, err)
	assert.False(t, ok)

	recs := allRecords(t, s, nil)
	require.Len(t, recs, 2)
	assert.Equal(t, permission.Window{From: 5, To: 100}, recs[0].Window)
}

func TestLoadSeed_Errors(t *testing.T) {
	_, err := LoadSeed(strings.NewReader("bogus_field: 1\n"))
	assert.Error(t, err)

	ctx := context.Background()
	s := openMemory(t)

	tests := []struct {
		name string
		seed Seed
	}{
		{"unknown entity type", Seed{Entities: []SeedEntity{{Name: "x", TxID: txid(3), Type: "token"}}}},
		{"bad admin", Seed{Changes: []SeedChange{{Admin: "nope", Address: addr(t, 1).String(), Permission: "send"}}}},
		{"bad permission", Seed{Changes: []SeedChange{{Admin: addr(t, 1).String(), Address: addr(t, 1).String(), Permission: "fly"}}}},
		{"unknown entity", Seed{Changes: []SeedChange{{Admin: addr(t, 1).String(), Address: addr(t, 1).String(), Permission: "ghost.write"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.ApplySeed(ctx, &tt.seed))
		})
	}
}
