package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/http/middleware"
	"github.com/tbourn/helloforever-backend/internal/services"
	"github.com/tbourn/helloforever-backend/internal/storage"
)

// Function-field fakes: a test wires only what the handler under test calls.

type fakeUsers struct {
	register   func(ctx context.Context, name, email string) (*domain.User, error)
	get        func(ctx context.Context, id string) (*domain.User, error)
	changePlan func(ctx context.Context, id string, plan domain.Plan) (*domain.User, error)
}

func (f fakeUsers) Register(ctx context.Context, name, email string) (*domain.User, error) {
	return f.register(ctx, name, email)
}
func (f fakeUsers) Get(ctx context.Context, id string) (*domain.User, error) { return f.get(ctx, id) }
func (f fakeUsers) ChangePlan(ctx context.Context, id string, plan domain.Plan) (*domain.User, error) {
	return f.changePlan(ctx, id, plan)
}

type fakeRecipients struct {
	create   func(ctx context.Context, userID string, in services.RecipientInput) (*domain.Recipient, error)
	get      func(ctx context.Context, userID, id string) (*domain.Recipient, error)
	listPage func(ctx context.Context, userID string, page, pageSize int) ([]domain.Recipient, int64, error)
	stats    func(ctx context.Context, userID string) (int64, *time.Time, error)
	update   func(ctx context.Context, userID, id string, in services.RecipientInput) (*domain.Recipient, error)
	del      func(ctx context.Context, userID, id string) error
}

func (f fakeRecipients) Create(ctx context.Context, userID string, in services.RecipientInput) (*domain.Recipient, error) {
	return f.create(ctx, userID, in)
}
func (f fakeRecipients) Get(ctx context.Context, userID, id string) (*domain.Recipient, error) {
	return f.get(ctx, userID, id)
}
func (f fakeRecipients) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Recipient, int64, error) {
	return f.listPage(ctx, userID, page, pageSize)
}
func (f fakeRecipients) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return f.stats(ctx, userID)
}
func (f fakeRecipients) Update(ctx context.Context, userID, id string, in services.RecipientInput) (*domain.Recipient, error) {
	return f.update(ctx, userID, id, in)
}
func (f fakeRecipients) Delete(ctx context.Context, userID, id string) error {
	return f.del(ctx, userID, id)
}

type fakeMessages struct {
	create   func(ctx context.Context, userID, key string, in services.MessageInput) (*domain.Message, bool, error)
	get      func(ctx context.Context, userID, id string) (*domain.Message, error)
	listPage func(ctx context.Context, userID string, page, pageSize int) ([]domain.Message, int64, error)
	stats    func(ctx context.Context, userID string) (int64, *time.Time, error)
	update   func(ctx context.Context, userID, id string, in services.MessageInput) (*domain.Message, error)
	del      func(ctx context.Context, userID, id string) error
	view     func(ctx context.Context, id string) (*domain.Message, error)
}

func (f fakeMessages) CreateIdempotent(ctx context.Context, userID, key string, in services.MessageInput) (*domain.Message, bool, error) {
	return f.create(ctx, userID, key, in)
}
func (f fakeMessages) Get(ctx context.Context, userID, id string) (*domain.Message, error) {
	return f.get(ctx, userID, id)
}
func (f fakeMessages) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Message, int64, error) {
	return f.listPage(ctx, userID, page, pageSize)
}
func (f fakeMessages) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return f.stats(ctx, userID)
}
func (f fakeMessages) Update(ctx context.Context, userID, id string, in services.MessageInput) (*domain.Message, error) {
	return f.update(ctx, userID, id, in)
}
func (f fakeMessages) Delete(ctx context.Context, userID, id string) error {
	return f.del(ctx, userID, id)
}
func (f fakeMessages) View(ctx context.Context, id string) (*domain.Message, error) {
	return f.view(ctx, id)
}

type fakeTrustees struct {
	get func(ctx context.Context, userID string) (*domain.Trustee, error)
	set func(ctx context.Context, userID string, in services.TrusteeInput) (*domain.Trustee, error)
}

func (f fakeTrustees) Get(ctx context.Context, userID string) (*domain.Trustee, error) {
	return f.get(ctx, userID)
}
func (f fakeTrustees) Set(ctx context.Context, userID string, in services.TrusteeInput) (*domain.Trustee, error) {
	return f.set(ctx, userID, in)
}

type fakeConversations struct {
	start   func(ctx context.Context, messageID string) (string, error)
	chat    func(ctx context.Context, token, text string) (string, error)
	history func(ctx context.Context, token string, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

func (f fakeConversations) Start(ctx context.Context, messageID string) (string, error) {
	return f.start(ctx, messageID)
}
func (f fakeConversations) Chat(ctx context.Context, token, text string) (string, error) {
	return f.chat(ctx, token, text)
}
func (f fakeConversations) History(ctx context.Context, token string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	return f.history(ctx, token, page, pageSize)
}

type fakeSweeps struct {
	run func(ctx context.Context, now time.Time, trigger string) (*services.SweepResult, error)
}

func (f fakeSweeps) Run(ctx context.Context, now time.Time, trigger string) (*services.SweepResult, error) {
	return f.run(ctx, now, trigger)
}

type fakePresigner struct {
	issue func(ctx context.Context, ownerID, messageID, mediaKind, contentType string) (storage.UploadTicket, error)
}

func (f fakePresigner) IssueUploadURL(ctx context.Context, ownerID, messageID, mediaKind, contentType string) (storage.UploadTicket, error) {
	return f.issue(ctx, ownerID, messageID, mediaKind, contentType)
}

// testRouter mounts handlers behind the identity middleware.
func testRouter(method, path string, hs ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	r.Handle(method, path, hs...)
	return r
}

// do performs a request as user uid (empty for anonymous) with an optional
// JSON body and extra headers.
func do(t *testing.T, r http.Handler, method, target, uid string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, isStr := body.(string); isStr {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set(middleware.HeaderUserID, uid)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
	return er
}
