package audiototext

import (
	"strconv"
	"strings"

	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

// Extension keys carried in Settings.
const (
	KeyAudioLanguage   = "audio_language"
	KeyAudioSampleRate = "audio_sample_rate"
)

// Content is audio given to a Service: inline bytes, or a URI when Data
// is nil.
type Content struct {
	Data      []byte
	URI       string
	MediaType string
}

// HasData reports whether the content carries bytes.
func (c Content) HasData() bool { return c.Data != nil }

// Settings are per-call execution settings of a Service.
type Settings struct {
	ModelID   string
	Extension map[string]any
}

// Get returns an extension value; key matching ignores case.
func (s *Settings) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.Extension[strings.ToLower(key)]
	return v, ok
}

// Set stores an extension value under its lowercased key.
func (s *Settings) Set(key string, value any) {
	if s.Extension == nil {
		s.Extension = make(map[string]any)
	}
	s.Extension[strings.ToLower(key)] = value
}

// Request is one Service call.
type Request struct {
	Audio    Content
	Settings *Settings
}

// TextContent is one text result of a Service. Inner holds the value the
// text was produced from.
type TextContent struct {
	Text     string
	Metadata map[string]any
	Inner    any
}

// Service is a single-shot audio-to-text capability.
type Service = provider.RequestResponse[Request, []TextContent]

// SettingsFromOptions converts transcription options to service settings.
func SettingsFromOptions(opts transcription.Options) *Settings {
	s := &Settings{ModelID: opts.Model}
	if opts.Language != "" {
		s.Set(KeyAudioLanguage, opts.Language)
	}
	if opts.SampleRate > 0 {
		s.Set(KeyAudioSampleRate, opts.SampleRate)
	}
	for k, v := range opts.Extra {
		if v != nil {
			s.Set(k, v)
		}
	}
	return s
}

// OptionsFromSettings converts service settings to transcription options.
func OptionsFromSettings(s *Settings) transcription.Options {
	var opts transcription.Options
	if s == nil {
		return opts
	}
	opts.Model = s.ModelID
	for k, v := range s.Extension {
		switch k {
		case KeyAudioLanguage:
			if lang, ok := v.(string); ok {
				opts.Language = lang
			}
		case KeyAudioSampleRate:
			opts.SampleRate = toInt(v)
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]any)
			}
			opts.Extra[k] = v
		}
	}
	return opts
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func copyProps(m map[string]any) map[string]any {
	if len(m) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
