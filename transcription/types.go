package transcription

import (
	"strings"
	"time"
)

// Options configures one transcription call. Every field is optional and
// each backend documents the default it applies.
type Options struct {
	// Model selects a backend model, e.g. "whisper-1".
	Model string `json:"model,omitempty" mapstructure:"model"`
	// Language is the source language tag, e.g. "en-US".
	Language string `json:"language,omitempty" mapstructure:"language"`
	// SampleRate is the source sample rate in Hz.
	SampleRate int `json:"sample_rate,omitempty" mapstructure:"sample_rate"`
	// FileName is a file name or media type hint for the audio.
	FileName string `json:"file_name,omitempty" mapstructure:"file_name"`
	// Extra holds backend-specific options keyed case-insensitively.
	Extra map[string]any `json:"extra,omitempty" mapstructure:"extra"`
}

// LanguageOr returns the language, or def when unset.
func (o Options) LanguageOr(def string) string {
	if o.Language != "" {
		return o.Language
	}
	return def
}

// SampleRateOr returns the sample rate, or def when unset.
func (o Options) SampleRateOr(def int) int {
	if o.SampleRate > 0 {
		return o.SampleRate
	}
	return def
}

// ModelOr returns the model, or def when unset.
func (o Options) ModelOr(def string) string {
	if o.Model != "" {
		return o.Model
	}
	return def
}

// Lookup finds an Extra value with a case-insensitive key match.
func (o Options) Lookup(key string) (any, bool) {
	if v, ok := o.Extra[key]; ok {
		return v, true
	}
	for k, v := range o.Extra {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Bool reads a boolean Extra value. Strings "true" and "1" count as true.
func (o Options) Bool(key string) bool {
	v, ok := o.Lookup(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	}
	return false
}

// TranscribedContent holds recognized text.
type TranscribedContent struct {
	Text string `json:"text"`
}

// Completion is the result of a non-streaming call. Content is nil only
// when recognition produced nothing at all.
type Completion struct {
	ID         string              `json:"id,omitempty"`
	Model      string              `json:"model,omitempty"`
	Content    *TranscribedContent `json:"content,omitempty"`
	Start      time.Duration       `json:"start,omitempty"`
	End        time.Duration       `json:"end,omitempty"`
	Properties map[string]any      `json:"properties,omitempty"`
	// Raw is the backend's native result, for diagnostics only.
	Raw any `json:"-"`
}

// Text returns the recognized text, or "" when there is none.
func (c *Completion) Text() string {
	if c == nil || c.Content == nil {
		return ""
	}
	return c.Content.Text
}

// HasText reports whether the completion carries recognized content.
func (c *Completion) HasText() bool {
	return c != nil && c.Content != nil
}

// UpdateKind discriminates streaming updates. Kinds compare case-insensitively.
type UpdateKind string

const (
	KindSessionOpen  UpdateKind = "sessionopen"
	KindTranscribing UpdateKind = "transcribing"
	KindTranscribed  UpdateKind = "transcribed"
	KindError        UpdateKind = "error"
	KindSessionClose UpdateKind = "sessionclose"

	// KindNoMatch marks audio the recognizer could not match to speech.
	KindNoMatch UpdateKind = "nomatch"
)

// ParseUpdateKind normalizes a kind string.
func ParseUpdateKind(s string) UpdateKind {
	return UpdateKind(strings.ToLower(strings.TrimSpace(s)))
}

// Is reports whether k and other name the same kind.
func (k UpdateKind) Is(other UpdateKind) bool {
	return strings.EqualFold(string(k), string(other))
}

// IsCanonical reports whether k is one of the five kinds every backend shares.
func (k UpdateKind) IsCanonical() bool {
	switch ParseUpdateKind(string(k)) {
	case KindSessionOpen, KindTranscribing, KindTranscribed, KindError, KindSessionClose:
		return true
	}
	return false
}

// carriesText reports whether updates of this kind are dropped when empty.
func (k UpdateKind) carriesText() bool {
	return k.Is(KindTranscribing) || k.Is(KindTranscribed)
}

func (k UpdateKind) String() string { return string(k) }

// Update is one element of a streaming transcription. ID correlates all
// updates of a session.
type Update struct {
	ID         string         `json:"id,omitempty"`
	Kind       UpdateKind     `json:"kind"`
	Start      time.Duration  `json:"start,omitempty"`
	End        time.Duration  `json:"end,omitempty"`
	Text       string         `json:"text,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	// Raw is the backend's native event, for diagnostics only.
	Raw any `json:"-"`
}

// UpdateFromCompletion wraps a completion as a single transcribed update.
func UpdateFromCompletion(c *Completion) Update {
	return Update{
		ID:         c.ID,
		Kind:       KindTranscribed,
		Start:      c.Start,
		End:        c.End,
		Text:       c.Text(),
		Properties: c.Properties,
		Raw:        c,
	}
}
