package snapshot

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

type memStorage struct {
	payload []byte
	loadErr error
	saves   int
}

func (m *memStorage) Save(_ context.Context, payload []byte) error {
	m.payload = append([]byte(nil), payload...)
	m.saves++
	return nil
}

func (m *memStorage) Load(context.Context) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.payload == nil {
		return nil, ErrNoSnapshot
	}
	return m.payload, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func populatedState(t *testing.T) *domain.State {
	t.Helper()
	st := domain.NewState()
	require.NoError(t, st.ApplyDeposit(100, "frontend", "alice", 100_000_000, 42))
	require.NoError(t, st.ApplyDeposit(200, "bob", "bob", 5, 43))
	require.NoError(t, st.ApplyWithdraw(300, "alice", 1_000, 77))
	require.NoError(t, st.AddToPot(domain.PotHighScore, 9))
	return st
}

func TestRoundTripCurrentFormat(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{}
	mgr := NewManager(storage, quietLogger())
	st := populatedState(t)

	require.NoError(t, mgr.Save(ctx, st))

	restored, source, err := mgr.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCurrent, source)
	assert.Equal(t, st, restored)
}

func TestRestoreLegacyFormatDefaultsPots(t *testing.T) {
	ctx := context.Background()
	st := populatedState(t)

	legacy := legacyV0{State: stateV0{
		Balances:       toV1(st).Balances,
		CreditedBlocks: toV1(st).CreditedBlocks,
		Logs:           toV1(st).Logs,
	}}
	payload, err := encMode.Marshal(legacy)
	require.NoError(t, err)

	storage := &memStorage{payload: payload}
	restored, source, err := NewManager(storage, quietLogger()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceLegacy, source)

	assert.Equal(t, st.Balances, restored.Balances)
	assert.Equal(t, st.CreditedBlocks, restored.CreditedBlocks)
	assert.Equal(t, st.Logs, restored.Logs)
	assert.Zero(t, restored.SilverPot)
	assert.Zero(t, restored.GoldPot)
	assert.Zero(t, restored.HighScorePot)
}

func TestRestoreFreshStart(t *testing.T) {
	ctx := context.Background()

	restored, source, err := NewManager(&memStorage{}, quietLogger()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, source)
	assert.Equal(t, domain.NewState(), restored)

	restored, source, err = NewManager(&memStorage{payload: []byte("not cbor at all")}, quietLogger()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, source)
	assert.Empty(t, restored.Balances)
}

func TestRestoreStorageError(t *testing.T) {
	boom := errors.New("disk gone")
	restored, source, err := NewManager(&memStorage{loadErr: boom}, quietLogger()).Restore(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, SourceFresh, source)
	require.NotNil(t, restored)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	payload, err := encMode.Marshal(taggedV1{Version: CurrentVersion + 1, State: toV1(domain.NewState())})
	require.NoError(t, err)

	st, source, err := Decode(payload)
	require.Error(t, err)
	assert.Equal(t, SourceFresh, source)
	assert.Empty(t, st.Balances)
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, source, err := Decode(nil)
	require.Error(t, err)
	assert.Equal(t, SourceFresh, source)
}

func TestEncodeIsDeterministic(t *testing.T) {
	st := populatedState(t)
	a, err := Encode(st)
	require.NoError(t, err)
	b, err := Encode(st.Clone())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
