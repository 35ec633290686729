package event

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pushBody = `{"ref":"refs/heads/main","after":"abc123","repository":{"name":"site","full_name":"acme/site"}}`

func TestDecode(t *testing.T) {
	form := url.Values{"payload": {pushBody}}.Encode()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantDoc     string
		wantErr     bool
	}{
		{name: "json", contentType: "application/json", body: pushBody, wantDoc: pushBody},
		{name: "json with charset", contentType: "application/json; charset=utf-8", body: pushBody, wantDoc: pushBody},
		{name: "no content type", contentType: "", body: pushBody, wantDoc: pushBody},
		{name: "form encoded", contentType: "application/x-www-form-urlencoded", body: form, wantDoc: pushBody},
		{name: "form without payload", contentType: "application/x-www-form-urlencoded", body: "foo=bar", wantErr: true},
		{name: "invalid json", contentType: "application/json", body: `{"ref":`, wantErr: true},
		{name: "json array", contentType: "application/json", body: `[1,2]`, wantErr: true},
		{name: "json null", contentType: "application/json", body: `null`, wantErr: true},
		{name: "unsupported type", contentType: "text/plain", body: pushBody, wantErr: true},
		{name: "garbage content type", contentType: ";;", body: pushBody, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, payload, err := Decode(tt.contentType, []byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedPayload))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDoc, string(doc))
			assert.Equal(t, "refs/heads/main", payload["ref"])
		})
	}
}

func TestEvent_Accessors(t *testing.T) {
	ev, err := New("push", "delivery-1", "application/json", []byte(pushBody))
	require.NoError(t, err)

	assert.Equal(t, "acme/site", ev.Subject())
	assert.Equal(t, "acme/site", ev.Repository())
	assert.Equal(t, "refs/heads/main", ev.Ref())
	assert.Equal(t, "main", ev.Branch())
	assert.Equal(t, "abc123", ev.After())
	assert.Equal(t, pushBody, string(ev.Body))
	assert.False(t, ev.ReceivedAt.IsZero())
}

func TestEvent_SubjectFallbacks(t *testing.T) {
	ev, err := New("push", "d", "", []byte(`{"repository":{"name":"site"}}`))
	require.NoError(t, err)
	assert.Equal(t, "site", ev.Subject())

	body := `{"zen":"Keep it logically awesome."}`
	ev, err = New("ping", "d", "", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, body, ev.Subject())
}

func TestEvent_BranchIgnoresTags(t *testing.T) {
	ev, err := New("push", "d", "", []byte(`{"ref":"refs/tags/v1.0.0"}`))
	require.NoError(t, err)
	assert.Equal(t, "", ev.Branch())
}

func TestEvent_Push(t *testing.T) {
	ev, err := New("push", "d", "", []byte(pushBody))
	require.NoError(t, err)

	push, err := ev.Push()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", push.GetRef())
	assert.Equal(t, "acme/site", push.GetRepo().GetFullName())

	ping, err := New("ping", "d", "", []byte(`{}`))
	require.NoError(t, err)
	_, err = ping.Push()
	assert.Error(t, err)
}
