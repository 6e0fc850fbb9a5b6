package farmsession

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Slandbot/farmsession/internal/events"
)

// User is the cached session user rendered by the dashboard before any network
// round-trip completes. It is derived from server responses, with the email
// decodable from the access token as a fallback.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Phone     string     `json:"phone,omitempty"`
	Farm      string     `json:"farm,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Credentials is the access/refresh token pair owned exclusively by the
// session manager. The access token is a signed, self-describing value; the
// refresh token is opaque to the client.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput is the input for [Manager.Register].
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// ProfileUpdate is the input for [Manager.UpdateProfile]. Nil fields are left
// unchanged by the backend.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Farm      *string `json:"farm,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// authPayload is the body of login/register/refresh responses. The backend has
// emitted both refreshToken and refresh_token historically; both are accepted
// on read.
type authPayload struct {
	User              *User  `json:"user"`
	Token             string `json:"token"`
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

func (p *authPayload) refreshToken() string {
	if p.RefreshToken != "" {
		return p.RefreshToken
	}
	return p.RefreshTokenSnake
}

// EventRecord is a structured session-transition record forwarded to the
// configured [EventSink].
type EventRecord = events.Record

// EventSink receives [EventRecord] values from the manager's event dispatcher.
type EventSink = events.Sink

// NoOpSink is an [EventSink] that silently discards all records.
type NoOpSink = events.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = events.ChannelSink

// JSONWriterSink is an [EventSink] that writes JSON-encoded records to an
// [io.Writer].
type JSONWriterSink = events.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return events.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return events.NewJSONWriterSink(w)
}
