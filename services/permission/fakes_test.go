package permission

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ambertime/amberchain/services"
	"github.com/ambertime/amberchain/utils"
)

func keyAddr(t *testing.T, seed byte) utils.Address {
	t.Helper()
	a, err := utils.NewKeyHashAddress(bytes.Repeat([]byte{seed}, utils.AddressLength))
	if err != nil {
		t.Fatalf("NewKeyHashAddress: %v", err)
	}
	return a
}

func scriptAddr(t *testing.T, seed byte) utils.Address {
	t.Helper()
	a, err := utils.NewScriptHashAddress(bytes.Repeat([]byte{seed}, utils.AddressLength))
	if err != nil {
		t.Fatalf("NewScriptHashAddress: %v", err)
	}
	return a
}

func txid(seed byte) string {
	return hex.EncodeToString(bytes.Repeat([]byte{seed}, 32))
}

// fakeStore 内存权限存储
type fakeStore struct {
	mu sync.RWMutex

	admins     map[string]bool // scope|address
	activators map[string]bool
	writers    map[string]bool
	receivers  map[utils.Address]bool

	records []Record
	details map[string][]PendingApproval

	queryErr error

	predicateCalls int
	lists          int
	released       int
	lockHeld       bool
	lockedQueries  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		admins:     map[string]bool{},
		activators: map[string]bool{},
		writers:    map[string]bool{},
		receivers:  map[utils.Address]bool{},
		details:    map[string][]PendingApproval{},
	}
}

func scopeKey(e *Entity, a utils.Address) string {
	if e == nil {
		return "|" + a.String()
	}
	return e.TxID + "|" + a.String()
}

func recordKey(r Record) string {
	return fmt.Sprintf("%s/%d", scopeKey(r.Entity, r.Address), r.Type)
}

func (s *fakeStore) grantAdmin(e *Entity, a utils.Address)    { s.admins[scopeKey(e, a)] = true }
func (s *fakeStore) grantActivate(e *Entity, a utils.Address) { s.activators[scopeKey(e, a)] = true }
func (s *fakeStore) grantWrite(e *Entity, a utils.Address)    { s.writers[scopeKey(e, a)] = true }

func (s *fakeStore) ResolveType(name string, entityType EntityType) Type {
	return ParseType(name, entityType)
}

func (s *fakeStore) IsActivateLevel(t Type) bool {
	return ActivateLevel(t)
}

func (s *fakeStore) QueryRecords(ctx context.Context, entity *Entity, address *utils.Address, t Type) (*List[Record], error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.lockHeld {
		s.lockedQueries++
	}
	var rows []Record
	for _, r := range s.records {
		if (r.Entity == nil) != (entity == nil) {
			continue
		}
		if entity != nil && r.Entity.TxID != entity.TxID {
			continue
		}
		if address != nil && r.Address != *address {
			continue
		}
		if r.Type&t == 0 {
			continue
		}
		rows = append(rows, r)
	}
	s.lists++
	return NewList(rows, func() { s.released++ }), nil
}

func (s *fakeStore) QueryDetails(ctx context.Context, rec Record) (*List[PendingApproval], error) {
	if s.lockHeld {
		s.lockedQueries++
	}
	rows := append([]PendingApproval(nil), s.details[recordKey(rec)]...)
	s.lists++
	return NewList(rows, func() { s.released++ }), nil
}

func (s *fakeStore) CanAdmin(ctx context.Context, entity *Entity, key utils.Address) (bool, error) {
	s.predicateCalls++
	return s.admins[scopeKey(entity, key)], nil
}

func (s *fakeStore) CanActivate(ctx context.Context, entity *Entity, key utils.Address) (bool, error) {
	s.predicateCalls++
	return s.activators[scopeKey(entity, key)] || s.admins[scopeKey(entity, key)], nil
}

func (s *fakeStore) CanWrite(ctx context.Context, entity *Entity, key utils.Address) (bool, error) {
	s.predicateCalls++
	return s.writers[scopeKey(entity, key)], nil
}

func (s *fakeStore) CanReceive(ctx context.Context, address utils.Address) (bool, error) {
	s.predicateCalls++
	return s.receivers[address], nil
}

func (s *fakeStore) ReadLock() func() {
	s.mu.RLock()
	s.lockHeld = true
	return func() {
		s.lockHeld = false
		s.mu.RUnlock()
	}
}

// fakeEntities 内存实体目录
type fakeEntities map[string]*Entity

func newFakeEntities(entities ...*Entity) fakeEntities {
	d := fakeEntities{}
	for _, e := range entities {
		d[e.Name] = e
		d[e.TxID] = e
	}
	return d
}

func (d fakeEntities) Resolve(ctx context.Context, id string) (*Entity, error) {
	if e, ok := d[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("lookup %s: %w", id, ErrEntityNotFound)
}

// fakeWallet 有序地址列表
type fakeWallet struct {
	addrs     []utils.Address
	spendable map[utils.Address]bool
}

func newFakeWallet(spendable ...utils.Address) *fakeWallet {
	w := &fakeWallet{spendable: map[utils.Address]bool{}}
	for _, a := range spendable {
		w.addrs = append(w.addrs, a)
		w.spendable[a] = true
	}
	return w
}

func (w *fakeWallet) watch(a utils.Address) {
	w.addrs = append(w.addrs, a)
}

func (w *fakeWallet) add(a utils.Address) {
	w.addrs = append(w.addrs, a)
	w.spendable[a] = true
}

func (w *fakeWallet) KnownAddresses(ctx context.Context) []utils.Address {
	return append([]utils.Address(nil), w.addrs...)
}

func (w *fakeWallet) IsSpendable(a utils.Address) bool {
	return w.spendable[a]
}

type publishCall struct {
	From   utils.Address
	Stream *Entity
	Key    string
	Data   string
}

// fakeSubmitter 记录提交的交易
type fakeSubmitter struct {
	submits   []SubmitRequest
	publishes []publishCall
	failAt    int // 第 N 次 Submit 失败（从 1 开始，0 表示不失败）
	n         int
}

func (f *fakeSubmitter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	f.n++
	if f.failAt > 0 && f.n == f.failAt {
		return "", fmt.Errorf("node rejected transaction")
	}
	f.submits = append(f.submits, req)
	return fmt.Sprintf("tx-%d", f.n), nil
}

func (f *fakeSubmitter) Publish(ctx context.Context, from utils.Address, stream *Entity, key string, dataHex string) (string, error) {
	f.n++
	f.publishes = append(f.publishes, publishCall{From: from, Stream: stream, Key: key, Data: dataHex})
	return fmt.Sprintf("tx-%d", f.n), nil
}

func (f *fakeSubmitter) permissions() []string {
	var out []string
	for _, s := range f.submits {
		name := s.Change.Type.String()
		if s.Change.Entity != nil {
			name = s.Change.Entity.Name + "." + name
		}
		out = append(out, name)
	}
	return out
}

// fixture 组装服务与全部替身
type fixture struct {
	store     *fakeStore
	entities  fakeEntities
	wallet    *fakeWallet
	submitter *fakeSubmitter
	svc       *permissionService

	s1, s2, services, authnodes, authrequests, open *Entity
}

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func testStreams() services.StreamConfig {
	return services.StreamConfig{
		AdminStreams:       []string{"S1"},
		MineStreams:        []string{"S2"},
		ServicesStream:     "services",
		AuthNodesStream:    "authnodes",
		AuthRequestsStream: "authrequests",
		AuthorityID:        "authority",
	}
}

func newFixture(t *testing.T, spendable ...utils.Address) *fixture {
	t.Helper()
	f := &fixture{
		store:        newFakeStore(),
		wallet:       newFakeWallet(spendable...),
		submitter:    &fakeSubmitter{},
		s1:           &Entity{Type: EntityStream, TxID: txid(0xa1), Name: "S1"},
		s2:           &Entity{Type: EntityStream, TxID: txid(0xa2), Name: "S2"},
		services:     &Entity{Type: EntityStream, TxID: txid(0xa3), Name: "services"},
		authnodes:    &Entity{Type: EntityStream, TxID: txid(0xa4), Name: "authnodes"},
		authrequests: &Entity{Type: EntityStream, TxID: txid(0xa5), Name: "authrequests"},
		open:         &Entity{Type: EntityStream, TxID: txid(0xa6), Name: "open", AnyoneCanWrite: true},
	}
	f.entities = newFakeEntities(f.s1, f.s2, f.services, f.authnodes, f.authrequests, f.open)

	svc, err := NewService(Options{
		Store:     f.store,
		Entities:  f.entities,
		Wallet:    f.wallet,
		Submitter: f.submitter,
		Streams:   testStreams(),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc.(*permissionService)
	return f
}
