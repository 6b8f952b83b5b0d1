package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catrink/internal/core/domain"
)

func testConfig(endpoint string) EmailJSConfig {
	return EmailJSConfig{
		Endpoint:   endpoint,
		ServiceID:  "service_x",
		PublicKey:  "public",
		PrivateKey: "private",
		Templates: map[domain.NotificationKind]string{
			domain.NotificationOrderPlaced: "template_order",
		},
	}
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func TestEmailJSNotifier_Send(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	n := NewEmailJSNotifier(testConfig(srv.URL), srv.Client(), quietLogger())
	err := n.Send(context.Background(), domain.Notification{
		Kind:   domain.NotificationOrderPlaced,
		To:     "tom@example.com",
		Params: map[string]string{"subject": "NEW ORDER #CAT-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "service_x", got.ServiceID)
	assert.Equal(t, "template_order", got.TemplateID)
	assert.Equal(t, "public", got.UserID)
	assert.Equal(t, "private", got.AccessToken)
	assert.Equal(t, "NEW ORDER #CAT-1", got.TemplateParams["subject"])
	assert.Equal(t, "tom@example.com", got.TemplateParams["to_email"])
}

func TestEmailJSNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	n := NewEmailJSNotifier(testConfig(srv.URL), srv.Client(), quietLogger())
	err := n.Send(context.Background(), domain.Notification{Kind: domain.NotificationOrderPlaced})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmailJSNotifier_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("The template ID is invalid"))
	}))
	defer srv.Close()

	n := NewEmailJSNotifier(testConfig(srv.URL), srv.Client(), quietLogger())
	err := n.Send(context.Background(), domain.Notification{Kind: domain.NotificationOrderPlaced})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template ID is invalid")
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmailJSNotifier_UnknownTemplate(t *testing.T) {
	n := NewEmailJSNotifier(testConfig("http://unused"), nil, quietLogger())
	err := n.Send(context.Background(), domain.Notification{Kind: domain.NotificationContact})
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	log, hook := test.NewNullLogger()
	n := NewLogNotifier(log)

	require.NoError(t, n.Send(context.Background(), domain.Notification{
		Kind:   domain.NotificationContact,
		To:     "support@catrink.com",
		Params: map[string]string{"subject": "hello"},
	}))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "hello", hook.LastEntry().Data["subject"])
}
