package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectChannel(t *testing.T) {
	full := Credentials{PhoneNumberID: "1055", AccessToken: "tok", BusinessAccountID: "waba"}

	testCases := []struct {
		name    string
		enabled bool
		creds   Credentials
		want    ChannelKind
	}{
		{name: "enabled with all credentials", enabled: true, creds: full, want: ChannelBusinessAPI},
		{name: "disabled with all credentials", enabled: false, creds: full, want: ChannelSimulated},
		{name: "missing token", enabled: true, creds: Credentials{PhoneNumberID: "1055", BusinessAccountID: "waba"}, want: ChannelSimulated},
		{name: "missing phone number id", enabled: true, creds: Credentials{AccessToken: "tok", BusinessAccountID: "waba"}, want: ChannelSimulated},
		{name: "missing account id", enabled: true, creds: Credentials{PhoneNumberID: "1055", AccessToken: "tok"}, want: ChannelSimulated},
		{name: "blank values", enabled: true, creds: Credentials{PhoneNumberID: " ", AccessToken: " ", BusinessAccountID: " "}, want: ChannelSimulated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectChannel(tc.enabled, tc.creds))
		})
	}
}

func TestChannelKindString(t *testing.T) {
	assert.Equal(t, "simulated", ChannelSimulated.String())
	assert.Equal(t, "business_api", ChannelBusinessAPI.String())
}

func TestSimulatedSenderHonoursContext(t *testing.T) {
	s := NewSimulatedSender(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, "0811", "hi")
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, NewSimulatedSender(time.Millisecond, nil).Send(context.Background(), "0811", "hi"))
}

func TestMicroBreaker(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewMicroBreaker(2, 10*time.Second)
	b.now = func() time.Time { return now }

	require.True(t, b.TryAcquire())
	b.OnFailure()
	require.True(t, b.TryAcquire())
	b.OnFailure()

	assert.True(t, b.Open())
	assert.False(t, b.TryAcquire())

	now = now.Add(11 * time.Second)
	assert.True(t, b.TryAcquire(), "probe allowed after open period")
	assert.False(t, b.TryAcquire(), "only one probe in flight")

	b.OnFailure()
	assert.False(t, b.TryAcquire(), "failed probe re-opens")

	now = now.Add(11 * time.Second)
	require.True(t, b.TryAcquire())
	b.OnSuccess()
	assert.False(t, b.Open())
	assert.True(t, b.TryAcquire())
}
