package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func testEnvelope() Envelope {
	return ContactEnvelope("01JTESTSUBMISSION", receivedAt, testSubmission())
}

func TestPubSubChannelPublishesEnvelope(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "contact-submissions")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	channel, err := NewPubSubChannel(topic)
	require.NoError(t, err)
	require.NoError(t, channel.Deliver(ctx, testEnvelope()))

	messages := srv.Messages()
	require.Len(t, messages, 1)

	var payload Envelope
	require.NoError(t, json.Unmarshal(messages[0].Data, &payload))
	require.Equal(t, "01JTESTSUBMISSION", payload.ID)
	require.Equal(t, "ada@example.com", payload.Email)

	attrs := messages[0].Attributes
	require.Equal(t, "contact", attrs["kind"])
	require.Equal(t, "Security Issue", attrs["subject"])
	require.Equal(t, "en", attrs["locale"])
	_, ok := attrs["hasAttachment"]
	require.False(t, ok)
}

func TestNewPubSubChannelRequiresTopic(t *testing.T) {
	_, err := NewPubSubChannel(nil)
	require.Error(t, err)
}

func TestWebhookChannelPostsJSON(t *testing.T) {
	var (
		gotAuth string
		gotKey  string
		got     Envelope
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch, err := NewWebhookChannel(srv.URL, "relay-token", time.Second)
	require.NoError(t, err)
	require.NoError(t, ch.Deliver(context.Background(), testEnvelope()))

	require.Equal(t, "Bearer relay-token", gotAuth)
	require.Equal(t, "01JTESTSUBMISSION", gotKey)
	require.Equal(t, "Ada Lovelace", got.Name)
}

func TestWebhookChannelReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ch, err := NewWebhookChannel(srv.URL, "", time.Second)
	require.NoError(t, err)

	err = ch.Deliver(context.Background(), testEnvelope())
	var werr *WebhookError
	require.True(t, errors.As(err, &werr))
	require.Equal(t, http.StatusServiceUnavailable, werr.Status)
	require.Equal(t, "mailbox full", werr.Body)
}

func TestNewWebhookChannelRequiresURL(t *testing.T) {
	_, err := NewWebhookChannel("  ", "", 0)
	require.Error(t, err)
}

func TestSimulatedChannelFailureRate(t *testing.T) {
	ch := NewSimulatedChannel(0, 0.5)
	ch.roll = func() float64 { return 0.2 }
	require.ErrorIs(t, ch.Deliver(context.Background(), testEnvelope()), ErrSimulatedFailure)

	ch.roll = func() float64 { return 0.9 }
	require.NoError(t, ch.Deliver(context.Background(), testEnvelope()))
	require.Len(t, ch.Delivered(), 1)
}

func TestSimulatedChannelKeepsBoundedHistory(t *testing.T) {
	ch := NewSimulatedChannel(0, 0)
	for i := 0; i < simulatedHistory+10; i++ {
		env := testEnvelope()
		env.ID = fmt.Sprintf("env-%02d", i)
		env.Attachment = &AttachmentRef{Filename: "report.pdf", Size: 4, Content: []byte("%PDF")}
		require.NoError(t, ch.Deliver(context.Background(), env))
	}

	got := ch.Delivered()
	require.Len(t, got, simulatedHistory)
	require.Equal(t, "env-10", got[0].ID)
	require.Equal(t, fmt.Sprintf("env-%02d", simulatedHistory+9), got[len(got)-1].ID)
	for _, env := range got {
		require.Nil(t, env.Attachment.Content)
		require.Equal(t, "report.pdf", env.Attachment.Filename)
	}
}

func TestSimulatedChannelHonoursContext(t *testing.T) {
	ch := NewSimulatedChannel(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, ch.Deliver(ctx, testEnvelope()), context.Canceled)
	require.Empty(t, ch.Delivered())
}

func TestSimulatedChannelClampsRate(t *testing.T) {
	ch := NewSimulatedChannel(-time.Second, 3)
	ch.roll = func() float64 { return 0.999 }
	require.ErrorIs(t, ch.Deliver(context.Background(), testEnvelope()), ErrSimulatedFailure)
}
