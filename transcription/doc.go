// Package transcription defines the backend-neutral speech-to-text contract.
//
// A Client turns an audio.Source into either one Completion (Transcribe) or
// an ordered Iterator of Updates (TranscribeStream). Updates carry a Kind:
// sessionopen, transcribing (interim text), transcribed (final text), error
// and sessionclose, plus backend-specific kinds such as nomatch.
//
// Backends live in sub-packages:
//
//   - transcription/assemblyai: realtime websocket and REST transcripts
//   - transcription/azure: push-stream recognizer with continuous recognition
//   - transcription/openai: audio transcription API, streaming emulated
//   - transcription/whisper: local model processor producing timed segments
//
// Event-driven backends feed a Session, which queues normalized updates and
// serves them to the caller in arrival order.
//
// # Usage
//
//	client, _ := whisper.New(whisper.Config{URL: "http://localhost:8000"})
//	defer client.Close(ctx)
//	it, err := client.TranscribeStream(ctx, audio.NewStreamSource(mic, "audio/wav"), transcription.Options{})
//	for {
//	    u, ok, err := it.Next(ctx)
//	    if err != nil || !ok { break }
//	    fmt.Println(u.Kind, u.Text)
//	}
package transcription
