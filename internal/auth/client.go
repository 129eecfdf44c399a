package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const getSessionMethod = "/ltiproducer.v1.SessionService/GetSession"

var ErrSessionNotFound = errors.New("lti session not found")

// Session - LTI-сессия, созданная провайдером при запуске инструмента.
type Session struct {
	ID        string
	ContextID string
	UserID    string
	Roles     []string
	Custom    map[string]string
}

// IsInstructor истинно для ролей Instructor и Administrator в любой записи
// (короткой или URN, например urn:lti:role:ims/lis/Instructor).
func (s *Session) IsInstructor() bool {
	for _, role := range s.Roles {
		name := role
		if i := strings.LastIndexAny(name, "/#:"); i >= 0 {
			name = name[i+1:]
		}
		if name == "Instructor" || name == "Administrator" {
			return true
		}
	}
	return false
}

// CustomParam возвращает custom-параметр запуска (например, video_id).
func (s *Session) CustomParam(name string) string {
	return s.Custom[strings.TrimPrefix(name, "custom_")]
}

// SessionClient получает сессии у внешнего LTI-провайдера по gRPC.
type SessionClient struct {
	conn    grpc.ClientConnInterface
	token   string
	timeout time.Duration
}

func NewSessionClient(conn grpc.ClientConnInterface, token string, timeout time.Duration) *SessionClient {
	return &SessionClient{conn: conn, token: token, timeout: timeout}
}

func (c *SessionClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}

	req, err := structpb.NewStruct(map[string]interface{}{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, getSessionMethod, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get lti session: %w", err)
	}

	return sessionFromStruct(sessionID, resp)
}

func sessionFromStruct(sessionID string, resp *structpb.Struct) (*Session, error) {
	fields := resp.GetFields()
	session := &Session{
		ID:        sessionID,
		ContextID: fields["context_id"].GetStringValue(),
		UserID:    fields["user_id"].GetStringValue(),
		Custom:    map[string]string{},
	}
	if session.ContextID == "" {
		return nil, fmt.Errorf("lti session %s has no context id", sessionID)
	}

	for _, role := range fields["roles"].GetListValue().GetValues() {
		if r := role.GetStringValue(); r != "" {
			session.Roles = append(session.Roles, r)
		}
	}
	for key, value := range fields["custom"].GetStructValue().GetFields() {
		session.Custom[strings.TrimPrefix(key, "custom_")] = value.GetStringValue()
	}

	return session, nil
}
