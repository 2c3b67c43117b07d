package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/ctxutil"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "secret", time.Minute)
	userID, sessionID := uuid.New(), uuid.New()

	tok, err := svc.IssueAccessToken(userID, sessionID)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.SessionID != sessionID {
		t.Fatalf("request data = %+v", rd)
	}
}

func TestAuthServiceRejects(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "secret", time.Minute)
	other := NewAuthService(testutil.Logger(t), "other", time.Minute)
	foreign, _ := other.IssueAccessToken(uuid.New(), uuid.New())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	expiredTok, _ := expired.SignedString([]byte("secret"))

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{})
	noSubjectTok, _ := noSubject.SignedString([]byte("secret"))

	for name, tok := range map[string]string{
		"empty":      "",
		"garbage":    "not.a.jwt",
		"foreign":    foreign,
		"expired":    expiredTok,
		"no subject": noSubjectTok,
	} {
		if _, err := svc.SetContextFromToken(context.Background(), tok); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("%s: err = %v, want unauthorized", name, err)
		}
	}
}
