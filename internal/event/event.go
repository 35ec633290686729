package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	// Wildcard is the event name that matches every incoming event type.
	Wildcard = "*"

	branchRefPrefix = "refs/heads/"
)

// ErrMalformedPayload is returned when a request body cannot be decoded into a JSON object.
var ErrMalformedPayload = errors.New("malformed payload")

// Event is a single authenticated webhook delivery.
type Event struct {
	// Name comes from the X-GitHub-Event header (e.g. "push", "ping")
	Name string

	// DeliveryID comes from the X-GitHub-Delivery header, used for log correlation only
	DeliveryID string

	// Body holds the exact bytes received. The signature was computed over these.
	Body []byte

	// Document is the JSON document carried by Body. For JSON deliveries it is Body itself,
	// for form-encoded deliveries it is the value of the "payload" field.
	Document json.RawMessage

	// Payload is the decoded Document
	Payload map[string]interface{}

	ReceivedAt time.Time
}

// New decodes body according to contentType and builds an Event.
func New(name, deliveryID, contentType string, body []byte) (*Event, error) {
	doc, payload, err := Decode(contentType, body)
	if err != nil {
		return nil, err
	}

	return &Event{
		Name:       name,
		DeliveryID: deliveryID,
		Body:       body,
		Document:   doc,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// Decode extracts the JSON document from a webhook body and parses it into a map.
//
// GitHub sends either application/json or application/x-www-form-urlencoded with
// the document in the "payload" field. A missing content type is treated as JSON.
func Decode(contentType string, body []byte) (json.RawMessage, map[string]interface{}, error) {
	mediaType := ContentTypeJSON
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid content type %q", ErrMalformedPayload, contentType)
		}
		mediaType = mt
	}

	var doc []byte
	switch mediaType {
	case ContentTypeJSON:
		doc = body
	case ContentTypeForm:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if !values.Has("payload") {
			return nil, nil, fmt.Errorf("%w: form body has no payload field", ErrMalformedPayload)
		}
		doc = []byte(values.Get("payload"))
	default:
		return nil, nil, fmt.Errorf("%w: unsupported content type %q", ErrMalformedPayload, mediaType)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload == nil {
		return nil, nil, fmt.Errorf("%w: payload must be a JSON object", ErrMalformedPayload)
	}

	return json.RawMessage(doc), payload, nil
}

// Subject returns the text that rule patterns are tested against.
// It is the repository full name ("owner/repo") when present, then the bare
// repository name, then the raw JSON document.
func (e *Event) Subject() string {
	if name := e.Repository(); name != "" {
		return name
	}
	return string(e.Document)
}

// Repository returns repository.full_name, falling back to repository.name.
func (e *Event) Repository() string {
	repo, ok := e.Payload["repository"].(map[string]interface{})
	if !ok {
		return ""
	}
	if fullName, ok := repo["full_name"].(string); ok && fullName != "" {
		return fullName
	}
	name, _ := repo["name"].(string)
	return name
}

// Ref returns the git ref of a push event (e.g. "refs/heads/main").
func (e *Event) Ref() string {
	ref, _ := e.Payload["ref"].(string)
	return ref
}

// Branch returns the branch name of a push to a branch, or "" for tags and other events.
func (e *Event) Branch() string {
	ref := e.Ref()
	if !strings.HasPrefix(ref, branchRefPrefix) {
		return ""
	}
	return strings.TrimPrefix(ref, branchRefPrefix)
}

// After returns the commit SHA the ref points to after a push.
func (e *Event) After() string {
	after, _ := e.Payload["after"].(string)
	return after
}

// Push decodes the document as a typed push event.
func (e *Event) Push() (*github.PushEvent, error) {
	if e.Name != "push" {
		return nil, fmt.Errorf("event %q is not a push event", e.Name)
	}

	parsed, err := github.ParseWebHook(e.Name, e.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse push event: %w", err)
	}

	push, ok := parsed.(*github.PushEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected push event type %T", parsed)
	}
	return push, nil
}
