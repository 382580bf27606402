// Package azure transcribes audio with Azure AI Speech.
//
// Audio is written into a PushStream that a Recognizer reads from. The
// Recognizer exposes the two Speech recognition modes: RecognizeOnce for a
// single utterance and continuous recognition with session and result
// events. RESTRecognizer implements both on the short-audio REST endpoint;
// its continuous mode runs one recognition over the pushed audio and
// reports it through the same events.
//
// Audio references are rejected: Speech needs the audio bytes. Options
// Language defaults to en-US. Results with no recognizable speech surface
// as "nomatch" updates; recognition errors as error updates carrying
// reason, error_code and error_details properties.
package azure
