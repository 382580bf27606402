// Package assemblyai transcribes audio with AssemblyAI.
//
// Transcribe uses the REST API: inline audio is uploaded first, http(s)
// references are submitted directly, and local file references (file://
// or bare paths) are uploaded from disk. The transcript is then polled
// until it completes.
//
// TranscribeStream uses the realtime websocket API. Audio is sent as it
// is read from the source and session events are turned into updates:
//
//	SessionBegins      -> sessionopen (session_id, expires_at)
//	PartialTranscript  -> transcribing
//	FinalTranscript    -> transcribed
//	error              -> error
//	connection closed  -> sessionclose (code, reason)
//
// Recognized Options.Extra keys: "disable_partial_transcripts" (bool).
// SampleRate defaults to 16000.
package assemblyai
