// Package kafka forwards registry events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"kitties/pkg/platform/events"
)

// Config describes the target cluster and topic.
type Config struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// Sink produces one JSON record per event, keyed by kitty id so every event
// for a kitty lands on the same partition in order.
type Sink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewSink connects to the cluster and makes sure the topic exists.
func NewSink(ctx context.Context, cfg Config, logger *slog.Logger) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	s := &Sink{client: client, topic: cfg.Topic, logger: logger}
	if err := s.ensureTopic(ctx, cfg); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureTopic(ctx context.Context, cfg Config) error {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", cfg.Topic, resp.Err)
	}
	if resp.Err == nil {
		s.logger.InfoContext(ctx, "kafka topic created",
			"topic", cfg.Topic,
			"partitions", partitions,
			"replication_factor", replication,
		)
	}
	return nil
}

// Publish implements events.Sink. It waits for every record to be acknowledged.
func (s *Sink) Publish(ctx context.Context, batch ...events.Event) error {
	if len(batch) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(batch))
	for _, e := range batch {
		record, err := NewRecord(e)
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	if err := s.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d events: %w", len(records), err)
	}
	return nil
}

// NewRecord encodes e as a record for the client's default topic.
func NewRecord(e events.Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return &kgo.Record{
		Key:   []byte(strconv.FormatUint(uint64(e.KittyID), 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	}, nil
}

// Close flushes pending records and closes the client.
func (s *Sink) Close() {
	s.client.Close()
}
