package permission

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambertime/amberchain/types"
)

func TestAggregate(t *testing.T) {
	a, b, c := keyAddr(t, 1), keyAddr(t, 2), keyAddr(t, 3)
	w := Window{From: 10, To: 20}

	admins, groups := Aggregate(3, []PendingApproval{
		{Window: w, Admin: a},
		{Window: Window{From: 0, To: InfiniteBlock}, Admin: c, Remaining: 2},
		{Window: w, Admin: b},
	})

	assert.Len(t, admins, 1)
	assert.Equal(t, c, admins[0])
	require.Len(t, groups, 1)
	assert.Equal(t, ConsensusGroup{
		StartBlock: 10,
		EndBlock:   20,
		Admins:     []string{a.String(), b.String()},
		Required:   1,
	}, groups[0])
}

func TestAggregate_EachApprovalCountedOnce(t *testing.T) {
	a, b, c, d := keyAddr(t, 1), keyAddr(t, 2), keyAddr(t, 3), keyAddr(t, 4)

	details := []PendingApproval{
		{Window: Window{From: 10, To: 20}, Admin: a},
		{Window: Window{From: 30, To: 40}, Admin: b},
		{Window: Window{From: 10, To: 20}, Admin: c},
		{Window: Window{From: 30, To: 40}, Admin: d},
		{Window: Window{From: 10, To: 21}, Admin: a},
	}
	_, groups := Aggregate(2, details)

	require.Len(t, groups, 3)
	assert.Equal(t, []string{a.String(), c.String()}, groups[0].Admins)
	assert.Equal(t, []string{b.String(), d.String()}, groups[1].Admins)
	assert.Equal(t, []string{a.String()}, groups[2].Admins)
	assert.Equal(t, int64(1), groups[2].Required)

	total := 0
	for _, g := range groups {
		total += len(g.Admins)
		assert.Equal(t, int64(2)-int64(len(g.Admins)), g.Required)
	}
	assert.Equal(t, len(details), total)
}

func TestAggregate_Empty(t *testing.T) {
	admins, groups := Aggregate(1, nil)
	assert.Empty(t, admins)
	assert.Empty(t, groups)
}

func TestListPermissions(t *testing.T) {
	live := keyAddr(t, 1)
	revoked := keyAddr(t, 2)
	multi := keyAddr(t, 3)
	p2sh := scriptAddr(t, 4)
	lastAdmin := keyAddr(t, 9)
	voter := keyAddr(t, 8)

	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.store.records = []Record{
			{Address: live, Type: TypeConnect, Window: Window{0, InfiniteBlock}, RequiredAdmins: 1, LastAdmin: lastAdmin},
			{Address: revoked, Type: TypeSend, Window: Window{0, 0}, RequiredAdmins: 2, HasPending: true, LastAdmin: lastAdmin},
			{Address: multi, Type: TypeMine, Window: Window{5, 50}, RequiredAdmins: 2, LastAdmin: lastAdmin},
			{Address: p2sh, Type: TypeReceive, Window: Window{0, InfiniteBlock}, RequiredAdmins: 1, LastAdmin: lastAdmin},
			{Address: live, Type: TypeConnect | TypeSend, Window: Window{0, InfiniteBlock}, LastAdmin: lastAdmin},
		}
		f.store.details[recordKey(f.store.records[1])] = []PendingApproval{
			{Window: Window{0, InfiniteBlock}, Admin: voter},
		}
		return f
	}

	t.Run("non-verbose hides dead rows", func(t *testing.T) {
		f := setup(t)
		rows, err := f.svc.ListPermissions(context.Background(), ListRequest{})
		require.NoError(t, err)

		require.Len(t, rows, 3)
		assert.Equal(t, live, rows[0].Address)
		assert.Equal(t, "connect", rows[0].Type)
		assert.Equal(t, []string{lastAdmin.String()}, rows[0].Admins)
		assert.Nil(t, rows[0].For)

		assert.Equal(t, multi, rows[1].Address)
		assert.Equal(t, int64(5), rows[1].StartBlock)
		assert.Equal(t, int64(50), rows[1].EndBlock)

		assert.True(t, rows[2].IsP2SH)
		assert.Equal(t, f.store.lists, f.store.released)
		assert.Equal(t, f.store.lists, f.store.lockedQueries)
		assert.False(t, f.store.lockHeld)
	})

	t.Run("verbose shows pending on dead rows", func(t *testing.T) {
		f := setup(t)
		rows, err := f.svc.ListPermissions(context.Background(), ListRequest{Verbose: true})
		require.NoError(t, err)

		require.Len(t, rows, 4)
		pendingRow := rows[1]
		assert.Equal(t, revoked, pendingRow.Address)
		assert.Empty(t, pendingRow.Admins)
		require.Len(t, pendingRow.Pending, 1)
		assert.Equal(t, ConsensusGroup{
			StartBlock: 0,
			EndBlock:   int64(InfiniteBlock),
			Admins:     []string{voter.String()},
			Required:   1,
		}, pendingRow.Pending[0])

		// 无明细时回退到最后一个管理员
		assert.Equal(t, []string{lastAdmin.String()}, rows[2].Admins)
		assert.Equal(t, f.store.lists, f.store.released)
	})

	t.Run("address filter", func(t *testing.T) {
		f := setup(t)
		rows, err := f.svc.ListPermissions(context.Background(), ListRequest{
			Permission: "connect,mine",
			Addresses:  []string{live.String() + "," + multi.String()},
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, live, rows[0].Address)
		assert.Equal(t, multi, rows[1].Address)
	})

	t.Run("empty address list", func(t *testing.T) {
		f := setup(t)
		rows, err := f.svc.ListPermissions(context.Background(), ListRequest{Addresses: []string{}})
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
		assert.Zero(t, f.store.lists)
	})

	t.Run("invalid address", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.ListPermissions(context.Background(), ListRequest{Addresses: []string{"nope"}})
		assert.True(t, types.IsKind(err, types.KindInvalidAddress), "err = %v", err)
	})

	t.Run("invalid permission", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.ListPermissions(context.Background(), ListRequest{Permission: "fly"})
		assert.True(t, types.IsKind(err, types.KindInvalidPermission), "err = %v", err)
	})

	t.Run("store failure", func(t *testing.T) {
		f := setup(t)
		f.store.queryErr = errors.New("disk gone")
		_, err := f.svc.ListPermissions(context.Background(), ListRequest{})
		require.True(t, types.IsKind(err, types.KindInternalError), "err = %v", err)
		assert.Contains(t, err.Error(), "Cannot open permission database")
		assert.False(t, f.store.lockHeld)
	})
}

func TestListPermissions_EntityScope(t *testing.T) {
	writer := keyAddr(t, 1)
	f := newFixture(t)
	f.store.records = []Record{
		{Entity: f.s1, Address: writer, Type: TypeWrite, Window: Window{0, InfiniteBlock}, RequiredAdmins: 1, LastAdmin: writer},
		{Address: writer, Type: TypeWrite, Window: Window{0, InfiniteBlock}, RequiredAdmins: 1, LastAdmin: writer},
	}

	rows, err := f.svc.ListPermissions(context.Background(), ListRequest{Permission: "S1.all"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, &EntityRef{Type: "stream", Name: "S1", CreateTxID: f.s1.TxID}, rows[0].For)
}

func TestHasPermission(t *testing.T) {
	holder := keyAddr(t, 1)
	f := newFixture(t)
	f.store.records = []Record{
		{Address: holder, Type: TypeAdmin, Window: Window{0, InfiniteBlock}, RequiredAdmins: 1, LastAdmin: holder},
		{Address: holder, Type: TypeMine, Window: Window{0, 0}, RequiredAdmins: 1, LastAdmin: holder},
	}

	ok, err := f.svc.HasPermission(context.Background(), holder.String(), "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.HasPermission(context.Background(), holder.String(), "mine")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.HasPermission(context.Background(), keyAddr(t, 2).String(), "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListingRow_JSON(t *testing.T) {
	addr := keyAddr(t, 1)
	p2sh := scriptAddr(t, 2)

	t.Run("non-verbose", func(t *testing.T) {
		row := ListingRow{Address: addr, Type: "send", StartBlock: 0, EndBlock: 10, Admins: []string{"x"}}
		data, err := json.Marshal(row)
		require.NoError(t, err)
		assert.JSONEq(t, `{"address":"`+addr.String()+`","for":null,"type":"send","startblock":0,"endblock":10}`, string(data))
	})

	t.Run("verbose with empty slices", func(t *testing.T) {
		row := ListingRow{Address: p2sh, IsP2SH: true, Type: "send", EndBlock: 10, Verbose: true}
		data, err := json.Marshal(row)
		require.NoError(t, err)
		assert.Equal(t,
			`{"address":"`+p2sh.String()+`","isp2shaddress":true,"for":null,"type":"send","startblock":0,"endblock":10,"admins":[],"pending":[]}`,
			string(data))
	})

	t.Run("entity", func(t *testing.T) {
		row := ListingRow{
			Address: addr,
			For:     &EntityRef{Type: "stream", Name: "S1", CreateTxID: "ab"},
			Type:    "write",
		}
		data, err := json.Marshal(row)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"for":{"type":"stream","name":"S1","createtxid":"ab"}`)
	})
}
