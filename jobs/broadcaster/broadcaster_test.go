package broadcaster

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	exitwal "vidar/infra/wal/exit"
)

func newTestBroadcaster(t *testing.T) (*Broadcaster, *exitwal.WAL, *mocks.SyncProducer) {
	t.Helper()

	outbox, err := exitwal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = outbox.Close() })

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	b := newWithProducer(outbox, producer, "deals", time.Second, zap.NewNop().Sugar())
	return b, outbox, producer
}

func TestDrainPublishesAndAcks(t *testing.T) {
	b, outbox, producer := newTestBroadcaster(t)

	require.NoError(t, outbox.PutNew(1, []byte(`{"seq":1}`)))
	require.NoError(t, outbox.PutNew(2, []byte(`{"seq":2}`)))

	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	b.drainOnce()

	for seq := uint64(1); seq <= 2; seq++ {
		rec, err := outbox.Get(seq)
		require.NoError(t, err)
		assert.Equal(t, exitwal.StateAcked, rec.State)
	}
}

func TestFailedPublishStaysPending(t *testing.T) {
	b, outbox, producer := newTestBroadcaster(t)

	require.NoError(t, outbox.PutNew(1, []byte(`{"seq":1}`)))

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	b.drainOnce()

	rec, err := outbox.Get(1)
	require.NoError(t, err)
	assert.Equal(t, exitwal.StateSent, rec.State, "failed sends stay unacked for retry")

	producer.ExpectSendMessageAndSucceed()
	b.drainOnce()

	rec, _ = outbox.Get(1)
	assert.Equal(t, exitwal.StateAcked, rec.State)
}
