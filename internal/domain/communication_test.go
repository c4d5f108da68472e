package domain

import "testing"

func TestEventStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to EventStatus
		allowed  bool
	}{
		{EventStatusQueued, EventStatusSending, true},
		{EventStatusQueued, EventStatusSent, true},
		{EventStatusQueued, EventStatusFailed, true},
		{EventStatusSending, EventStatusSent, true},
		{EventStatusSending, EventStatusFailed, true},
		{EventStatusSending, EventStatusQueued, true}, // retry re-queue
		{EventStatusSent, EventStatusRead, true},

		{EventStatusSent, EventStatusQueued, false},
		{EventStatusSent, EventStatusSending, false},
		{EventStatusSent, EventStatusFailed, false},
		{EventStatusRead, EventStatusSent, false},
		{EventStatusRead, EventStatusFailed, false},
		{EventStatusFailed, EventStatusQueued, false},
		{EventStatusFailed, EventStatusSent, false},
		{EventStatusQueued, EventStatusQueued, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestValidChannel(t *testing.T) {
	for _, c := range []Channel{ChannelSMS, ChannelEmail, ChannelWhatsApp, ChannelLetter} {
		if !ValidChannel(c) {
			t.Errorf("%s should be valid", c)
		}
	}
	if ValidChannel(Channel("fax")) {
		t.Error("fax should not be valid")
	}
	if ValidChannel(Channel("")) {
		t.Error("empty channel should not be valid")
	}
}
