package emails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSplitAssigned_PostsToBrevo(t *testing.T) {
	var got BrevoSendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", MailFrom: "deals@example.com", Endpoint: srv.URL}
	err := c.SendSplitAssigned(context.Background(), SplitAssigned{
		ToEmail:    "bob@example.com",
		ToName:     "Bob",
		DealName:   "Acme - Renewal",
		Percentage: "25",
		Amount:     "2500",
		DealURL:    "http://localhost:5173/deals/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "k", apiKey)
	assert.Equal(t, "deals@example.com", got.Sender.Email)
	assert.Equal(t, "bob@example.com", got.To[0].Email)
	assert.Equal(t, "You have been allocated 25% of Acme - Renewal", got.Subject)
	assert.Contains(t, got.HTMLContent, "<strong>25%</strong>")
}

func TestSendSplitAssigned_NoAPIKeyIsNoop(t *testing.T) {
	c := &BrevoClient{Endpoint: "http://127.0.0.1:0"}
	assert.NoError(t, c.SendSplitAssigned(context.Background(), SplitAssigned{ToEmail: "a@b.c"}))
}

func TestSendSplitAssigned_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", Endpoint: srv.URL}
	err := c.SendSplitAssigned(context.Background(), SplitAssigned{ToEmail: "a@b.c", DealName: "X", Percentage: "10"})
	assert.EqualError(t, err, "brevo send failed: status 400")
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Tom &amp; &quot;Jerry&quot;&lt;/b&gt;", EscapeHTML(`<b>Tom & "Jerry"</b>`))
}
