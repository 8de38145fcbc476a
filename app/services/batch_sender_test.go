package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecipients(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("agent%04d@brokerage.example", i))
	}
	return out
}

func TestChunkedSenderPartitioning(t *testing.T) {
	tests := []struct {
		name           string
		recipientCount int
		chunkSize      int
		expectedChunks int
	}{
		{
			name:           "exact multiple",
			recipientCount: 1000,
			chunkSize:      50,
			expectedChunks: 20,
		},
		{
			name:           "remainder chunk",
			recipientCount: 1001,
			chunkSize:      50,
			expectedChunks: 21,
		},
		{
			name:           "fewer than one chunk",
			recipientCount: 7,
			chunkSize:      50,
			expectedChunks: 1,
		},
		{
			name:           "single recipient",
			recipientCount: 1,
			chunkSize:      50,
			expectedChunks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewMockMailProvider()
			sender := NewChunkedSender(provider, "office@brokerage.example", tt.chunkSize, 0)

			recipients := makeRecipients(tt.recipientCount)
			result := sender.SendBatch(context.Background(), recipients, "Listings", "<html></html>")

			require.NotNil(t, result)
			assert.True(t, result.Success())
			assert.Equal(t, tt.recipientCount, result.Sent)
			assert.Equal(t, 0, result.Failed)
			assert.Empty(t, result.Errors)
			assert.Len(t, provider.Requests, tt.expectedChunks)
			assert.Equal(t, tt.recipientCount, provider.SentTotal())

			// Every chunk except possibly the last must be full size
			for i, req := range provider.Requests {
				if i < len(provider.Requests)-1 {
					assert.Len(t, req.BCC, tt.chunkSize)
				}
				assert.Equal(t, "office@brokerage.example", req.To)
			}
		})
	}
}

func TestChunkedSenderOrderPreserved(t *testing.T) {
	provider := NewMockMailProvider()
	sender := NewChunkedSender(provider, "office@brokerage.example", 3, 0)

	recipients := makeRecipients(10)
	result := sender.SendBatch(context.Background(), recipients, "Listings", "<html></html>")
	require.True(t, result.Success())

	var flattened []string
	for _, req := range provider.Requests {
		flattened = append(flattened, req.BCC...)
	}
	assert.Equal(t, recipients, flattened)
}

func TestChunkedSenderPartialFailure(t *testing.T) {
	provider := NewMockMailProvider()
	// Fail the chunk carrying recipient 100 (third chunk of 50)
	provider.FailBCC["agent0100@brokerage.example"] = true
	sender := NewChunkedSender(provider, "office@brokerage.example", 50, 0)

	recipients := makeRecipients(1000)
	result := sender.SendBatch(context.Background(), recipients, "Listings", "<html></html>")

	require.NotNil(t, result)
	assert.False(t, result.Success())
	assert.Equal(t, 950, result.Sent)
	assert.Equal(t, 50, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "chunk 3")

	// Every chunk was still attempted
	assert.Len(t, provider.Requests, 20)
}

func TestChunkedSenderAllChunksFail(t *testing.T) {
	provider := NewMockMailProvider()
	provider.Err = fmt.Errorf("provider is down")
	sender := NewChunkedSender(provider, "office@brokerage.example", 50, 0)

	recipients := makeRecipients(150)
	result := sender.SendBatch(context.Background(), recipients, "Listings", "<html></html>")

	assert.False(t, result.Success())
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 150, result.Failed)
	assert.Len(t, result.Errors, 3)
}

func TestChunkedSenderEmptyList(t *testing.T) {
	provider := NewMockMailProvider()
	sender := NewChunkedSender(provider, "office@brokerage.example", 50, 0)

	result := sender.SendBatch(context.Background(), nil, "Listings", "<html></html>")

	require.NotNil(t, result)
	assert.True(t, result.Success())
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, provider.Requests)
}

func TestChunkedSenderRunsEveryChunkAfterCancellation(t *testing.T) {
	provider := NewMockMailProvider()
	sender := NewChunkedSender(provider, "office@brokerage.example", 3, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recipients := makeRecipients(10)
	result := sender.SendBatch(ctx, recipients, "Listings", "<html></html>")

	// A started batch runs to completion; the context only reaches the
	// provider call for I/O deadlines
	require.NotNil(t, result)
	assert.True(t, result.Success())
	assert.Equal(t, 10, result.Sent)
	assert.Len(t, provider.Requests, 4)
}

func TestChunkedSenderDefaultChunkSize(t *testing.T) {
	provider := NewMockMailProvider()
	sender := NewChunkedSender(provider, "office@brokerage.example", 0, 0)

	recipients := makeRecipients(120)
	result := sender.SendBatch(context.Background(), recipients, "Listings", "<html></html>")

	assert.True(t, result.Success())
	// 120 recipients at the default chunk size of 50 is 3 chunks
	assert.Len(t, provider.Requests, 3)
}
