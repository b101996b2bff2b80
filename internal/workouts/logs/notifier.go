package logs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const changesChannelPrefix = "liftlog:changes:"

func changesChannel(userID string) string {
	return changesChannelPrefix + userID
}

func logPublishErr(userID string, err error) {
	log.Errorf("publish logs change for user [%s]: %s", userID, err)
}

// Notifier publishes "collection changed" events on a per-user redis channel.
type Notifier struct {
	redisClient *redis.Client
	now         func() time.Time
}

func NewNotifier(redisClient *redis.Client) *Notifier {
	return &Notifier{
		redisClient: redisClient,
		now:         time.Now,
	}
}

func (n *Notifier) Publish(ctx context.Context, userID string) error {
	cmd := n.redisClient.Publish(ctx, changesChannel(userID), strconv.FormatInt(n.now().UnixNano(), 10))
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

type snapshotReader interface {
	Snapshot(ctx context.Context, userID string) (*Snapshot, error)
}

func newSnapshotBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// readSnapshot reads the user's snapshot, retrying failed reads until b gives
// up or ctx is done.
func readSnapshot(ctx context.Context, reader snapshotReader, userID string, b backoff.BackOff) (*Snapshot, error) {
	var snapshot *Snapshot
	err := backoff.RetryNotify(
		func() error {
			var err error
			snapshot, err = reader.Snapshot(ctx, userID)
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			log.Warnf("read logs snapshot for [%s], retry in %s: %s", userID, next, err)
		},
	)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Subscriber turns change notifications into full snapshots.
type Subscriber struct {
	redisClient *redis.Client
	reader      snapshotReader
	newBackOff  func() backoff.BackOff
}

func NewSubscriber(redisClient *redis.Client, reader snapshotReader) *Subscriber {
	return &Subscriber{
		redisClient: redisClient,
		reader:      reader,
		newBackOff:  newSnapshotBackOff,
	}
}

// Subscribe pushes the current snapshot, then a fresh one after every change
// of the user's collections. The channel is closed when ctx is done, or when
// a snapshot cannot be read even after retrying.
func (s *Subscriber) Subscribe(ctx context.Context, userID string) (<-chan *Snapshot, error) {
	pubsub := s.redisClient.Subscribe(ctx, changesChannel(userID))
	// wait for the subscription confirmation, so no change after this point is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan *Snapshot, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Warnf("close logs subscription for [%s]: %s", userID, err)
			}
		}()

		if !s.push(ctx, userID, out) {
			return
		}

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				if !s.push(ctx, userID, out) {
					return
				}
			}
		}
	}()

	return out, nil
}

// push reads and sends a snapshot, it returns false once ctx is done or the
// read failed for good.
func (s *Subscriber) push(ctx context.Context, userID string, out chan<- *Snapshot) bool {
	snapshot, err := readSnapshot(ctx, s.reader, userID, s.newBackOff())
	if err != nil {
		log.Errorf("read logs snapshot for [%s]: %s", userID, err)
		return false
	}
	select {
	case out <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}
