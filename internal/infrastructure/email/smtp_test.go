package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
)

var sentAt = time.Date(2025, 9, 18, 12, 0, 0, 0, time.UTC)

func testDelivery(send Sender) *SMTPDelivery {
	d := NewSMTPDelivery(config.SMTPConfig{
		Host:        "smtp.example.org",
		Port:        587,
		SenderEmail: "digest@example.org",
		SenderName:  "Dog Digest",
		Recipients:  []string{"a@example.org", "b@example.org"},
	}, 24*time.Hour, nil)
	d.send = send
	d.now = func() time.Time { return sentAt }
	return d
}

func testDigest() domain.Digest {
	biscuit := domain.Listing{ID: "PF-1", Name: "Biscuit", Breeds: []string{"Beagle"}}
	return domain.Digest{
		GeneratedAt: sentAt,
		TopPicks:    []domain.PickEntry{{Rank: 1, Rationale: "Gentle.", Listing: biscuit}},
		Listings:    []domain.Listing{biscuit},
	}
}

func TestDeliverBuildsMultipartMessage(t *testing.T) {
	t.Parallel()

	var (
		gotFrom string
		gotTo   []string
		gotRaw  []byte
	)
	d := testDelivery(func(_ context.Context, from string, to []string, raw []byte) error {
		gotFrom, gotTo, gotRaw = from, to, raw
		return nil
	})

	require.NoError(t, d.Deliver(context.Background(), testDigest()))

	assert.Equal(t, "digest@example.org", gotFrom)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, gotTo)

	msg, err := mail.ReadMessage(bytes.NewReader(gotRaw))
	require.NoError(t, err)

	from, err := mail.ParseAddress(msg.Header.Get("From"))
	require.NoError(t, err)
	assert.Equal(t, "Dog Digest", from.Name)
	assert.Equal(t, "digest@example.org", from.Address)
	assert.Equal(t, "a@example.org, b@example.org", msg.Header.Get("To"))
	assert.Equal(t, "Dog Digest: 1 matches in last 24h (run @ 2025-09-18T12:00:00Z), 1 top picks", msg.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])
	var types []string
	var html string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(part)
		require.NoError(t, err)
		types = append(types, part.Header.Get("Content-Type"))
		if part.Header.Get("Content-Type") == "text/html; charset=utf-8" {
			html = string(body)
		}
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
	assert.Contains(t, html, "Top picks")
	assert.Contains(t, html, "Gentle.")
}

func TestDeliverWrapsSendFailure(t *testing.T) {
	t.Parallel()

	d := testDelivery(func(context.Context, string, []string, []byte) error {
		return errors.New("535 authentication failed")
	})

	err := d.Deliver(context.Background(), testDigest())

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, "smtp send", transport.Op)
}

func TestDeliverRequiresRecipients(t *testing.T) {
	t.Parallel()

	d := testDelivery(func(context.Context, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	})
	d.cfg.Recipients = nil

	assert.ErrorContains(t, d.Deliver(context.Background(), testDigest()), "no recipients")
}

func TestSubjectEncodingForNonASCII(t *testing.T) {
	t.Parallel()

	raw, err := Message{
		From:    mail.Address{Address: "x@example.org"},
		To:      []string{"y@example.org"},
		Subject: "Chloé et Zoë",
		Text:    "t",
		HTML:    "<p>h</p>",
	}.Bytes(sentAt)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	decoded, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Chloé et Zoë", decoded)
}
