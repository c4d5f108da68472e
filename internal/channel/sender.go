// Package channel holds the per-channel transports used by the delivery
// pipeline. A sender is a pure operation: given an address and rendered
// content it either succeeds or fails; all state handling lives upstream.
// Provider wire formats are deliberately thin and pluggable.
package channel

import (
	"context"
	"strings"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// maxShortFormLength is the character ceiling for length-constrained channels.
const maxShortFormLength = 160

// Sender delivers rendered content to one address on one channel.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, address, content string) error
}

// Registry maps channels to their senders.
type Registry map[domain.Channel]Sender

// NewRegistry indexes senders by channel.
func NewRegistry(senders ...Sender) Registry {
	reg := make(Registry, len(senders))
	for _, s := range senders {
		reg[s.Channel()] = s
	}
	return reg
}

// Adapt applies the channel-specific content adaptation before a send. It is
// a pure transform; the canonical stored content is never modified.
func Adapt(ch domain.Channel, content string) string {
	switch ch {
	case domain.ChannelSMS, domain.ChannelWhatsApp:
		return shortForm(content)
	}
	return content
}

// shortForm truncates content for length-constrained channels. Truncation
// counts runes, never bytes, so accented characters are not split mid-sequence.
func shortForm(content string) string {
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= maxShortFormLength {
		return trimmed
	}
	return string(runes[:maxShortFormLength-3]) + "..."
}
