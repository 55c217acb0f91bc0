package channels

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

type inboundOnlyAdapter struct {
	typ      models.ChannelType
	messages chan *models.Message
}

func (a *inboundOnlyAdapter) Type() models.ChannelType { return a.typ }

func (a *inboundOnlyAdapter) Messages() <-chan *models.Message { return a.messages }

type outboundOnlyAdapter struct {
	typ models.ChannelType
}

func (a outboundOnlyAdapter) Type() models.ChannelType { return a.typ }

func (outboundOnlyAdapter) Send(ctx context.Context, msg *models.Message) error { return nil }

func TestRegistryGetOutbound(t *testing.T) {
	registry := NewRegistry()
	registry.Register(outboundOnlyAdapter{typ: models.ChannelType("webhook")})

	if _, ok := registry.GetOutbound(models.ChannelType("webhook")); !ok {
		t.Fatalf("expected outbound adapter to be registered")
	}
	if _, ok := registry.GetOutbound(models.ChannelConsole); ok {
		t.Fatalf("expected no outbound adapter for an unregistered channel type")
	}
}

func TestAggregateMessagesUsesInboundAdapters(t *testing.T) {
	registry := NewRegistry()
	inbound := &inboundOnlyAdapter{typ: models.ChannelType("webhook"), messages: make(chan *models.Message, 1)}
	registry.Register(inbound)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := registry.AggregateMessages(ctx)
	msg := &models.Message{Role: models.RoleUser, Content: "hi"}
	inbound.messages <- msg

	got := <-out
	if got != msg {
		t.Fatalf("expected message to pass through, got %#v", got)
	}
}

func TestRegistryRegisterReplacesCapabilities(t *testing.T) {
	registry := NewRegistry()
	both := &inboundOnlyAdapter{typ: models.ChannelConsole, messages: make(chan *models.Message)}
	registry.Register(both)

	if _, ok := registry.Get(models.ChannelConsole); !ok {
		t.Fatalf("expected adapter to be registered")
	}
	if _, ok := registry.GetOutbound(models.ChannelConsole); ok {
		t.Fatalf("an inbound-only adapter must not register as outbound")
	}

	registry.Register(outboundOnlyAdapter{typ: models.ChannelConsole})
	if _, ok := registry.GetOutbound(models.ChannelConsole); !ok {
		t.Fatalf("re-registering the same channel type with an outbound adapter should register outbound")
	}
}
