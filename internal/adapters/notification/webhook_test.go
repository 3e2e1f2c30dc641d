package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receipt() domain.Notification {
	return domain.Notification{
		Recipient:   domain.Recipient{Reference: "parent-1", Name: "A Parent", Email: "parent@example.com"},
		Kind:        domain.NotificationReceipt,
		ReferenceID: "inv-1",
		Payload:     map[string]any{"amount": 150000},
	}
}

func TestWebhookDispatcher_DeliveredIsSigned(t *testing.T) {
	var gotSig string
	var got domain.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, Sign([]byte("s3cret"), body), gotSig)
		_ = json.Unmarshal(body, &got)
		w.Header().Set(MessageIDHeader, "msg-42")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(srv.URL, "s3cret", time.Second)
	res, err := d.Send(context.Background(), receipt())

	require.NoError(t, err)
	assert.True(t, res.Delivered())
	assert.Equal(t, "msg-42", res.MessageID)
	assert.NotEmpty(t, gotSig)
	assert.Equal(t, "inv-1", got.ReferenceID)
}

func TestWebhookDispatcher_ClientErrorIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"reason":"no email on file"}`))
	}))
	defer srv.Close()

	res, err := NewWebhookDispatcher(srv.URL, "", time.Second).Send(context.Background(), receipt())

	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRejected, res.Status)
	assert.Equal(t, "no email on file", res.Reason)
}

func TestWebhookDispatcher_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res, err := NewWebhookDispatcher(srv.URL, "", time.Second).Send(context.Background(), receipt())

	require.Error(t, err)
	assert.Equal(t, domain.DeliveryFailed, res.Status)
	assert.False(t, res.Delivered())
}

func TestWebhookDispatcher_UnreachableFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res, err := NewWebhookDispatcher(url, "", 200*time.Millisecond).Send(context.Background(), receipt())

	require.Error(t, err)
	assert.Equal(t, domain.DeliveryFailed, res.Status)
}

func TestLogDispatcher_AlwaysDelivers(t *testing.T) {
	res, err := LogDispatcher{}.Send(context.Background(), receipt())
	require.NoError(t, err)
	assert.True(t, res.Delivered())
	assert.NotEmpty(t, res.MessageID)
}
