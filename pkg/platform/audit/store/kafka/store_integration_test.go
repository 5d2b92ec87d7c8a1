//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"lookout/internal/platform/config"
	audit "lookout/pkg/platform/audit"
	"lookout/pkg/platform/audit/store/kafka"
	"lookout/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	cfg      config.KafkaConfig
	store    *kafka.Store
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.cfg = config.KafkaConfig{
		Brokers:           s.redpanda.Brokers,
		AuditTopic:        "lookout.audit.test",
		Partitions:        1,
		ReplicationFactor: 1,
	}
	store, err := kafka.New(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.store = store
}

func (s *KafkaStoreSuite) TearDownSuite() {
	if s.store != nil {
		s.NoError(s.store.Close(context.Background()))
	}
}

func (s *KafkaStoreSuite) TestNewIsIdempotentOnExistingTopic() {
	again, err := kafka.New(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.NoError(again.Close(context.Background()))
}

func (s *KafkaStoreSuite) TestAppendProducesJSONRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.Event{
		Category:     audit.CategoryBilling,
		Timestamp:    time.Now().UTC(),
		UserID:       "user-42",
		Action:       string(audit.EventBalanceDebited),
		Amount:       -1,
		BalanceAfter: 9,
	}
	s.Require().NoError(s.store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.AuditTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	for {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out waiting for audit record")
		var found bool
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) != "user-42" {
				return
			}
			var got audit.Event
			s.Require().NoError(json.Unmarshal(r.Value, &got))
			s.Equal(event.Action, got.Action)
			s.Equal(int64(9), got.BalanceAfter)
			found = true
		})
		if found {
			return
		}
	}
}
