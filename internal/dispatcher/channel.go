package dispatcher

import (
	"context"
	"strings"
)

// ChannelKind is the transport a notification goes out on.
type ChannelKind int

const (
	ChannelSimulated ChannelKind = iota
	ChannelBusinessAPI
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelBusinessAPI:
		return "business_api"
	default:
		return "simulated"
	}
}

// Credentials for the WhatsApp Business API. All three are required.
type Credentials struct {
	PhoneNumberID     string
	AccessToken       string
	BusinessAccountID string
}

func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.PhoneNumberID) != "" &&
		strings.TrimSpace(c.AccessToken) != "" &&
		strings.TrimSpace(c.BusinessAccountID) != ""
}

// SelectChannel picks the Business API only when the deployment enables it
// and every credential is present.
func SelectChannel(apiEnabled bool, creds Credentials) ChannelKind {
	if apiEnabled && creds.Complete() {
		return ChannelBusinessAPI
	}
	return ChannelSimulated
}

// Sender delivers a rendered message to one phone number.
type Sender interface {
	Kind() ChannelKind
	Send(ctx context.Context, phone, text string) error
}
