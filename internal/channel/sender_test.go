package channel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/notice-engine/internal/config"
	"github.com/spec-kit/notice-engine/internal/domain"
)

func TestAdaptTruncatesShortFormChannels(t *testing.T) {
	long := strings.Repeat("a", 300)

	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelWhatsApp} {
		got := Adapt(ch, long)
		if len(got) != 160 {
			t.Errorf("%s: len = %d, want 160", ch, len(got))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("%s: truncated content must end with ellipsis", ch)
		}
		if got[:157] != long[:157] {
			t.Errorf("%s: truncation must preserve the prefix", ch)
		}
	}
}

func TestAdaptTruncationKeepsAccentedRunesIntact(t *testing.T) {
	// the 157th character lands inside a run of accented text
	content := strings.Repeat("a", 156) + "échéance du préavis dépassée"

	got := Adapt(domain.ChannelSMS, content)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated content is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 160 {
		t.Fatalf("rune count = %d, want 160", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated content must end with ellipsis: %q", got)
	}
	if want := strings.Repeat("a", 156) + "é"; !strings.HasPrefix(got, want) {
		t.Fatalf("truncation split a character: %q", got[150:])
	}
}

func TestAdaptKeepsShortContentVerbatim(t *testing.T) {
	content := "Votre préavis prend effet le 30/11/2026."
	if got := Adapt(domain.ChannelSMS, content); got != content {
		t.Errorf("got %q, want unchanged content", got)
	}
}

func TestAdaptLeavesLongFormChannelsUntouched(t *testing.T) {
	long := strings.Repeat("b", 5000)
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelLetter} {
		if got := Adapt(ch, long); got != long {
			t.Errorf("%s: content must pass through unchanged", ch)
		}
	}
}

func TestAdaptIsPure(t *testing.T) {
	original := strings.Repeat("c", 300)
	input := original
	_ = Adapt(domain.ChannelSMS, input)
	if input != original {
		t.Error("input must not be mutated")
	}
}

func TestNewRegistryIndexesByChannel(t *testing.T) {
	email := NewEmailSender(config.ChannelConfig{}, zap.NewNop())
	sms := NewSMSSender(config.ChannelConfig{}, zap.NewNop())
	reg := NewRegistry(email, sms)

	if reg[domain.ChannelEmail] != Sender(email) {
		t.Error("email sender not indexed")
	}
	if reg[domain.ChannelSMS] != Sender(sms) {
		t.Error("sms sender not indexed")
	}
	if _, ok := reg[domain.ChannelLetter]; ok {
		t.Error("letter sender should be absent")
	}
}

func TestLetterSenderWritesPrintableFile(t *testing.T) {
	dir := t.TempDir()
	sender := NewLetterSender(config.ChannelConfig{LetterOutputDir: dir}, zap.NewNop())

	err := sender.Send(context.Background(), "12 rue de la Paix, 75002 Paris", "Votre préavis prend effet le 30/11/2026.")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read letter: %v", err)
	}
	if !strings.Contains(string(body), "12 rue de la Paix") {
		t.Error("letter must carry the recipient address")
	}
	if !strings.Contains(string(body), "30/11/2026") {
		t.Error("letter must carry the rendered content")
	}
}
