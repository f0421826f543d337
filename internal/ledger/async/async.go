// Package async wraps a ledger.Store with non-blocking batched writes so
// usage recording never stalls a streaming query path.
package async

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/streamdex/streamdex/internal/ledger"
)

// Store queues entries in memory and writes them in batches to the
// underlying store. Entries still queued when the process dies are lost.
type Store struct {
	underlying    ledger.Store
	entryChan     chan ledger.Entry
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
	stopChan      chan struct{}
	logger        *log.Logger
}

// Config configures batching behavior.
type Config struct {
	BatchSize     int           // maximum entries per batch (default 64)
	FlushInterval time.Duration // maximum time between flushes (default 1s)
	ChannelBuffer int           // queue capacity (default 1024)
	Logger        *log.Logger   // optional diagnostics
}

// New wraps an existing ledger store with async batch writing.
func New(underlying ledger.Store, cfg Config) *Store {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = 1024
	}

	s := &Store{
		underlying:    underlying,
		entryChan:     make(chan ledger.Entry, cfg.ChannelBuffer),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		stopChan:      make(chan struct{}),
		logger:        cfg.Logger,
	}

	s.wg.Add(1)
	go s.batchWriter()
	return s
}

func (s *Store) batchWriter() {
	defer s.wg.Done()

	batch := make([]ledger.Entry, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx := context.Background()
		for _, entry := range batch {
			if err := s.underlying.Record(ctx, entry); err != nil && s.logger != nil {
				s.logger.Printf("[async-ledger] write entry: %v", err)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-s.entryChan:
			batch = append(batch, entry)
			if len(batch) >= s.batchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-s.stopChan:
			close(s.entryChan)
			for entry := range s.entryChan {
				batch = append(batch, entry)
				if len(batch) >= s.batchSize {
					flush()
				}
			}
			flush()
			return
		}
	}
}

// Record queues an entry without blocking. When the queue is full the entry
// is dropped: losing a usage record is preferable to stalling generation.
func (s *Store) Record(ctx context.Context, entry ledger.Entry) error {
	select {
	case s.entryChan <- entry:
		return nil
	default:
		if s.logger != nil {
			s.logger.Printf("[async-ledger] queue full, dropping entry for session %s", entry.SessionID)
		}
		return nil
	}
}

// Summary delegates to the underlying store.
func (s *Store) Summary(ctx context.Context) (ledger.Summary, error) {
	return s.underlying.Summary(ctx)
}

// ListRecent delegates to the underlying store.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]ledger.Entry, error) {
	return s.underlying.ListRecent(ctx, limit)
}

// Close flushes remaining entries and closes the underlying store.
func (s *Store) Close() error {
	close(s.stopChan)
	s.wg.Wait()
	return s.underlying.Close()
}
