// Package enforce intercepts join and chat events and vetoes the ones that
// belong to banned or muted identities. It owns no state: punishments are
// read from the store, and the verdicts are consumed by the gateway.
package enforce

import (
	"context"
	"time"

	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// JoinEvent is a login attempt as seen by the interception chain.
type JoinEvent struct {
	PlayerID    identity.PlayerID
	DisplayName string
	OriginAddr  string
	OriginFP    string
	At          time.Time
}

// ChatEvent is a communication attempt as seen by the interception chain.
type ChatEvent struct {
	PlayerID    identity.PlayerID
	DisplayName string
	Message     string
	At          time.Time
}

// Verdict is the outcome of one interceptor. A veto short-circuits the rest
// of the chain; Message is safe to show to the player.
type Verdict struct {
	Veto    bool
	Code    dErrors.Code
	Message string
}

func allow() Verdict { return Verdict{} }

func veto(code dErrors.Code, message string) Verdict {
	return Verdict{Veto: true, Code: code, Message: message}
}

// JoinInterceptor inspects a join attempt.
type JoinInterceptor interface {
	Name() string
	InterceptJoin(ctx context.Context, ev *JoinEvent) Verdict
}

// ChatInterceptor inspects a chat message.
type ChatInterceptor interface {
	Name() string
	InterceptChat(ctx context.Context, ev *ChatEvent) Verdict
}

// JoinChain evaluates interceptors in construction order and stops at the
// first veto. Order is the contract: the ban check is registered first so a
// banned identity is rejected before any later interceptor (including trust
// re-verification in the gateway) observes the attempt.
type JoinChain struct {
	interceptors []JoinInterceptor
}

func NewJoinChain(interceptors ...JoinInterceptor) *JoinChain {
	return &JoinChain{interceptors: interceptors}
}

func (c *JoinChain) Run(ctx context.Context, ev *JoinEvent) Verdict {
	for _, in := range c.interceptors {
		if v := in.InterceptJoin(ctx, ev); v.Veto {
			return v
		}
	}
	return allow()
}

// ChatChain evaluates interceptors in construction order and stops at the
// first veto. The mute check is registered before any content-based filter
// so a muted identity never reaches (or is charged against) spam state.
type ChatChain struct {
	interceptors []ChatInterceptor
}

func NewChatChain(interceptors ...ChatInterceptor) *ChatChain {
	return &ChatChain{interceptors: interceptors}
}

func (c *ChatChain) Run(ctx context.Context, ev *ChatEvent) Verdict {
	for _, in := range c.interceptors {
		if v := in.InterceptChat(ctx, ev); v.Veto {
			return v
		}
	}
	return allow()
}
