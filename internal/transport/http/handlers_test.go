package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access/gate"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/enforce"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/gateway"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/punish"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/trust"
	"github.com/viniciuscfreitas/primeleague18-sub003/mocks"
)

const adminKey = "test-admin-key"

type HandlersSuite struct {
	suite.Suite
	records     *access.InMemoryStore
	punishments *punish.InMemoryStore
	gate        *gate.Service
	router      http.Handler
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.records = access.NewInMemoryStore()
	s.punishments = punish.NewInMemoryStore()
	fingerprints := identity.NewFingerprinter("test-salt")

	gateSvc, err := gate.New(s.records, fingerprints, []string{"VIP2024"})
	s.Require().NoError(err)
	s.gate = gateSvc

	ctrl := gomock.NewController(s.T())
	channel := mocks.NewMockChannel(ctrl)
	channel.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	trustSvc, err := trust.New(s.records, fingerprints, channel,
		trust.NewInMemoryClaimStore(), trust.NewTokenIssuer("test-key"), time.Minute)
	s.Require().NoError(err)

	enforceSvc, err := enforce.New(s.punishments)
	s.Require().NoError(err)
	joins := enforce.NewJoinChain(enforce.NewBanInterceptor(enforceSvc))
	chats := enforce.NewChatChain(enforce.NewMuteInterceptor(enforceSvc))

	gw, err := gateway.New(s.records, gateSvc, trustSvc, fingerprints, joins, chats)
	s.Require().NoError(err)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	s.Require().NoError(err)

	handler := NewHandler(gw, trustSvc, gateSvc, s.records, s.punishments,
		WithAdminKeyHash(string(hash)))
	s.router = NewRouter(handler)
}

func (s *HandlersSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *HandlersSuite) asAdmin(method, path string, body any) *httptest.ResponseRecorder {
	return s.do(method, path, body, map[string]string{"X-Admin-Key": adminKey})
}

func (s *HandlersSuite) TestHealthz() {
	rr := s.do(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"status":"ok"`)
}

func (s *HandlersSuite) TestJoin() {
	s.Run("first contact with a valid code is allowed", func() {
		rr := s.do(http.MethodPost, "/session/join",
			map[string]string{"display_name": "Alice", "origin_addr": "1.2.3.4", "access_code": "VIP2024"}, nil)
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"outcome":"allow"`)
	})

	s.Run("missing display_name is a bad request", func() {
		rr := s.do(http.MethodPost, "/session/join", map[string]string{"origin_addr": "1.2.3.4"}, nil)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unregistered name without a code is unauthorized", func() {
		rr := s.do(http.MethodPost, "/session/join",
			map[string]string{"display_name": "Stranger", "origin_addr": "1.2.3.4"}, nil)
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), `"outcome":"reject"`)
	})

	s.Run("malformed body is a bad request", func() {
		req := httptest.NewRequest(http.MethodPost, "/session/join", bytes.NewBufferString("{"))
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlersSuite) TestChat() {
	s.Run("clean chat is not suppressed", func() {
		rr := s.do(http.MethodPost, "/session/chat",
			map[string]string{"display_name": "Talker", "message": "hi"}, nil)
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"suppressed":false`)
	})

	s.Run("muted identity is suppressed", func() {
		s.Require().NoError(s.punishments.Create(context.Background(), &punish.Record{
			SubjectID: identity.Resolve("Quiet"),
			Kind:      punish.KindMute,
			Active:    true,
		}))

		rr := s.do(http.MethodPost, "/session/chat",
			map[string]string{"display_name": "Quiet", "message": "hi"}, nil)
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"suppressed":true`)
	})
}

func (s *HandlersSuite) TestApprovalResolve() {
	s.Run("missing token is a bad request", func() {
		rr := s.do(http.MethodPost, "/approval/resolve", map[string]any{"approve": true}, nil)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("garbage token is unauthorized", func() {
		rr := s.do(http.MethodPost, "/approval/resolve",
			map[string]any{"token": "garbage", "approve": true}, nil)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

func (s *HandlersSuite) TestAdminAuth() {
	s.Run("no key is unauthorized", func() {
		rr := s.do(http.MethodPost, "/admin/punishments", map[string]string{}, nil)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("wrong key is unauthorized", func() {
		rr := s.do(http.MethodPost, "/admin/punishments", map[string]string{},
			map[string]string{"X-Admin-Key": "wrong"})
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}

func (s *HandlersSuite) TestAdminPunishments() {
	s.Run("creates a ban", func() {
		rr := s.asAdmin(http.MethodPost, "/admin/punishments", map[string]string{
			"display_name": "Griefer",
			"kind":         "ban",
			"reason":       "griefing",
			"issued_by":    "console",
		})
		s.Require().Equal(http.StatusCreated, rr.Code)

		_, err := s.punishments.ActiveFor(context.Background(),
			identity.Resolve("Griefer"), "", punish.KindBan, time.Now())
		s.NoError(err)
	})

	s.Run("rejects an unknown kind", func() {
		rr := s.asAdmin(http.MethodPost, "/admin/punishments", map[string]string{
			"display_name": "X", "kind": "warn",
		})
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("rejects a subjectless record", func() {
		rr := s.asAdmin(http.MethodPost, "/admin/punishments", map[string]string{"kind": "ban"})
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("timed mute carries an expiry", func() {
		rr := s.asAdmin(http.MethodPost, "/admin/punishments", map[string]string{
			"display_name": "Loud", "kind": "mute", "duration": "10m",
		})
		s.Require().Equal(http.StatusCreated, rr.Code)

		rec, err := s.punishments.ActiveFor(context.Background(),
			identity.Resolve("Loud"), "", punish.KindMute, time.Now())
		s.Require().NoError(err)
		s.NotNil(rec.ExpiresAt)
	})

	s.Run("pardons by id", func() {
		create := s.asAdmin(http.MethodPost, "/admin/punishments", map[string]string{
			"display_name": "Pardoned", "kind": "ban",
		})
		s.Require().Equal(http.StatusCreated, create.Code)
		var created struct {
			ID int64 `json:"id"`
		}
		s.Require().NoError(json.Unmarshal(create.Body.Bytes(), &created))

		rr := s.asAdmin(http.MethodDelete, "/admin/punishments/"+strconv.FormatInt(created.ID, 10), nil)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("pardoning an unknown id is not found", func() {
		rr := s.asAdmin(http.MethodDelete, "/admin/punishments/99999", nil)
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *HandlersSuite) TestAdminAccess() {
	ctx := context.Background()
	_, err := s.gate.Redeem(ctx, "Payer", "1.2.3.4", "VIP2024")
	s.Require().NoError(err)
	playerID := identity.Resolve("Payer").String()

	s.Run("extends access", func() {
		future := time.Now().Add(30 * 24 * time.Hour).UTC()
		rr := s.asAdmin(http.MethodPost, "/admin/access/"+playerID+"/extend",
			map[string]any{"expires_at": future})
		s.Require().Equal(http.StatusOK, rr.Code)

		rec, err := s.records.Get(ctx, identity.Resolve("Payer"))
		s.Require().NoError(err)
		s.Equal(access.PaymentActive, rec.PaymentState)
		s.NotNil(rec.AccessExpiresAt)
	})

	s.Run("rejects a past expiry", func() {
		past := time.Now().Add(-time.Hour).UTC()
		rr := s.asAdmin(http.MethodPost, "/admin/access/"+playerID+"/extend",
			map[string]any{"expires_at": past})
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("binds an approval channel", func() {
		rr := s.asAdmin(http.MethodPost, "/admin/access/"+playerID+"/channel",
			map[string]string{"channel_id": "discord:42"})
		s.Require().Equal(http.StatusOK, rr.Code)

		rec, err := s.records.Get(ctx, identity.Resolve("Payer"))
		s.Require().NoError(err)
		s.Equal("discord:42", rec.ApprovalChannelID)
	})

	s.Run("unknown player is not found", func() {
		rr := s.asAdmin(http.MethodPost, "/admin/access/"+identity.Resolve("Ghost").String()+"/extend",
			map[string]any{})
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("replaces the code set", func() {
		rr := s.asAdmin(http.MethodPut, "/admin/access-codes", map[string][]string{"codes": {"FRESH"}})
		s.Require().Equal(http.StatusOK, rr.Code)

		_, err := s.gate.Redeem(ctx, "Newcomer", "2.2.2.2", "VIP2024")
		s.Error(err)
		_, err = s.gate.Redeem(ctx, "Newcomer", "2.2.2.2", "FRESH")
		s.NoError(err)
	})
}
