package services

import (
	"context"
	"fmt"
	"time"

	"github.com/propline/propline/utils"
)

// BatchResult is the tally of one batched send. Failed chunks are recorded,
// never raised, so a partial delivery still completes.
type BatchResult struct {
	Sent   int
	Failed int
	Errors []string
}

// Success reports whether every chunk was delivered
func (r *BatchResult) Success() bool {
	return r.Failed == 0
}

// BatchSender splits a recipient list into provider-sized chunks and delivers
// them sequentially
type BatchSender interface {
	SendBatch(ctx context.Context, recipients []string, subject, html string) *BatchResult
}

type chunkedSender struct {
	provider   MailProvider
	to         string
	chunkSize  int
	chunkDelay time.Duration
}

// NewChunkedSender creates a sender that delivers in chunks of chunkSize,
// pausing chunkDelay between consecutive chunks. The to address appears in
// the visible To header of every chunk; recipients ride on BCC.
func NewChunkedSender(provider MailProvider, to string, chunkSize int, chunkDelay time.Duration) BatchSender {
	if chunkSize <= 0 {
		chunkSize = utils.DefaultChunkSize
	}
	return &chunkedSender{
		provider:   provider,
		to:         to,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
	}
}

// SendBatch delivers the whole list chunk by chunk. A failing chunk adds its
// recipients to the failed tally and the loop moves on; the method itself
// never fails.
func (s *chunkedSender) SendBatch(ctx context.Context, recipients []string, subject, html string) *BatchResult {
	result := &BatchResult{}
	if len(recipients) == 0 {
		return result
	}

	chunks := chunkRecipients(recipients, s.chunkSize)
	for i, chunk := range chunks {
		// Once a batch starts it runs every chunk to completion. The
		// context only bounds the per-chunk provider I/O.
		if i > 0 && s.chunkDelay > 0 {
			time.Sleep(s.chunkDelay)
		}

		err := s.provider.Send(ctx, &MailRequest{
			To:      s.to,
			BCC:     chunk,
			Subject: subject,
			HTML:    html,
		})
		if err != nil {
			result.Failed += len(chunk)
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %d: %v", i+1, err))
			continue
		}
		result.Sent += len(chunk)
	}
	return result
}

func chunkRecipients(recipients []string, size int) [][]string {
	chunks := make([][]string, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		chunks = append(chunks, recipients[start:end])
	}
	return chunks
}
